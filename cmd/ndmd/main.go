package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/nicedig/ndm/internal/devserver"
	"github.com/nicedig/ndm/internal/profile"
	"github.com/nicedig/ndm/internal/store"
)

const defaultAddr = "127.0.0.1:8787"

func main() {
	profile.LoadEnv()

	dataDir := flag.String("data-dir", envOr("NDMD_DATA_DIR", filepath.Join(profile.BaseDir(), "ndmd")), "data directory")
	addr := flag.String("addr", envOr("NDMD_ADDR", defaultAddr), "listen address")
	publicURL := flag.String("public-url", os.Getenv("NDMD_PUBLIC_URL"), "base URL of attachment links (default http://<addr>)")
	secret := flag.String("secret", os.Getenv("NDMD_JWT_SECRET"), "HS256 signing secret")
	seed := flag.Bool("seed", false, "create demo users on an empty database")
	ttl := flag.Duration("ttl", 0, "token lifetime for the token command (0 = no expiry)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	cmd := "serve"
	if len(args) > 0 {
		cmd = args[0]
	}

	var err error
	switch cmd {
	case "serve":
		gin.SetMode(gin.ReleaseMode)
		err = serve(devserver.Params{
			DataDir:   *dataDir,
			Addr:      *addr,
			PublicURL: *publicURL,
			Secret:    *secret,
			Seed:      *seed,
		})
	case "token":
		if len(args) != 2 {
			printUsage()
			os.Exit(1)
		}
		err = issueToken(*dataDir, *secret, args[1], *ttl)
	case "verify":
		if len(args) != 2 {
			printUsage()
			os.Exit(1)
		}
		err = verifyUser(*dataDir, args[1])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: ndmd [flags] [command]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  serve                 Run the DM API (default)")
	fmt.Fprintln(os.Stderr, "  token <id|email>      Print a bearer token for a user")
	fmt.Fprintln(os.Stderr, "  verify <id|email>     Mark a user's email as verified")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "flags:")
	flag.PrintDefaults()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func serve(p devserver.Params) error {
	if p.Secret == "" {
		return errors.New("a signing secret is required (--secret or NDMD_JWT_SECRET)")
	}
	app := fx.New(
		devserver.Module(p),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
	)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

// openStore opens the database without taking the server lock; sqlite
// serializes the single write.
func openStore(dataDir string) (*store.DB, error) {
	return devserver.OpenStore(dataDir, zap.NewNop())
}

func findUser(db *store.DB, who string) (*store.User, error) {
	if id, err := strconv.ParseInt(who, 10, 64); err == nil {
		return db.GetUser(id)
	}
	return db.GetUserByEmail(who)
}

func issueToken(dataDir, secret, who string, ttl time.Duration) error {
	issuer, err := devserver.NewIssuer(secret)
	if err != nil {
		return err
	}
	db, err := openStore(dataDir)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	u, err := findUser(db, who)
	if err != nil {
		return fmt.Errorf("find user %q: %w", who, err)
	}
	token, err := issuer.Issue(u.ID, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func verifyUser(dataDir, who string) error {
	db, err := openStore(dataDir)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	u, err := findUser(db, who)
	if err != nil {
		return fmt.Errorf("find user %q: %w", who, err)
	}
	if err := db.VerifyUser(u.ID, time.Now().UnixMilli()); err != nil {
		return err
	}
	fmt.Printf("Verified %s (%d)\n", u.Email, u.ID)
	return nil
}
