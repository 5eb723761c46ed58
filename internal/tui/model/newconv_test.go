package model

import (
	"context"
	"errors"
	"testing"

	"github.com/nicedig/ndm/internal/dm"
	"github.com/nicedig/ndm/internal/dmapi"
)

func candidates(context.Context) ([]dmapi.User, error) {
	return []dmapi.User{
		{ID: 1, Name: "me"},
		{ID: 2, Name: "aya"},
		{ID: 3, Name: "ken"},
	}, nil
}

func TestNewConversationLoadExcludesCurrentUser(t *testing.T) {
	var f NewConversationForm
	if err := f.Load(context.Background(), candidates, 1); err != nil {
		t.Fatal(err)
	}
	got := f.Candidates()
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 3 {
		t.Errorf("Candidates() = %+v", got)
	}
}

func TestNewConversationLoadError(t *testing.T) {
	var f NewConversationForm
	boom := errors.New("boom")
	err := f.Load(context.Background(), func(context.Context) ([]dmapi.User, error) { return nil, boom }, 1)
	if !errors.Is(err, boom) || !errors.Is(f.Err(), boom) {
		t.Errorf("err = %v, Err() = %v", err, f.Err())
	}
	if f.Loading() {
		t.Error("still loading after failure")
	}
}

func TestNewConversationToggle(t *testing.T) {
	var f NewConversationForm
	f.Toggle(2)
	f.Toggle(3)
	if !f.TitleRequired() {
		t.Error("two selectees should require a title")
	}
	f.Toggle(2)
	if f.IsSelected(2) || !f.IsSelected(3) {
		t.Errorf("Selected() = %v", f.Selected())
	}
	if f.TitleRequired() {
		t.Error("one selectee should not require a title")
	}
}

func TestNewConversationSubmitValidation(t *testing.T) {
	tests := []struct {
		name     string
		selected []int64
		title    string
		want     error
	}{
		{"nobody", nil, "", dm.ErrNoParticipants},
		{"group without title", []int64{2, 3}, "  ", dm.ErrGroupTitleRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f NewConversationForm
			for _, id := range tt.selected {
				f.Toggle(id)
			}
			f.SetTitle(tt.title)
			_, err := f.Submit(context.Background(), func(context.Context, dmapi.CreateConversationInput) (*dmapi.Conversation, error) {
				t.Error("create called for invalid form")
				return nil, nil
			})
			if !errors.Is(err, tt.want) || !errors.Is(f.Err(), tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewConversationSubmitFailureKeepsForm(t *testing.T) {
	var f NewConversationForm
	f.Toggle(2)
	boom := errors.New("boom")
	_, err := f.Submit(context.Background(), func(context.Context, dmapi.CreateConversationInput) (*dmapi.Conversation, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) || !errors.Is(f.Err(), boom) {
		t.Errorf("err = %v", err)
	}
	if !f.IsSelected(2) {
		t.Error("selection lost after failure")
	}
}

func TestNewConversationSubmitGroup(t *testing.T) {
	var f NewConversationForm
	f.Toggle(2)
	f.Toggle(3)
	f.SetTitle(" Project ")

	var got dmapi.CreateConversationInput
	conv, err := f.Submit(context.Background(), func(_ context.Context, in dmapi.CreateConversationInput) (*dmapi.Conversation, error) {
		got = in
		return &dmapi.Conversation{ID: 9}, nil
	})
	if err != nil || conv == nil || conv.ID != 9 {
		t.Fatalf("Submit() = %v, %v", conv, err)
	}
	if got.Type != dmapi.TypeGroup || got.Title != "Project" || len(got.ParticipantIDs) != 2 {
		t.Errorf("create input = %+v", got)
	}
}
