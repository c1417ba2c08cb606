// Command createsuperuser creates a staff superuser through the same
// validation and store path as public registration, or promotes an
// existing account with -promote. It needs only the database and pepper.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	pgrepo "github.com/Miraines/MoonyAndStarry/user-service/internal/adapters/db/postgres"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/adapters/transport/http/dto"
	appsvc "github.com/Miraines/MoonyAndStarry/user-service/internal/app/user/service"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/app/user/validate"
	customErrors "github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/errors"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/infra/config"
	lg "github.com/Miraines/MoonyAndStarry/user-service/internal/infra/log"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/infra/migrate"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/term"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// readPassword is swapped out in tests.
var readPassword = term.ReadPassword

type options struct {
	Email         string
	Username      string
	FirstName     string
	LastName      string
	PasswordStdin bool
	Promote       bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.Email, "email", "", "superuser email (required)")
	fs.StringVar(&o.Username, "username", "", "superuser username (required)")
	fs.StringVar(&o.FirstName, "first-name", "Admin", "first name")
	fs.StringVar(&o.LastName, "last-name", "User", "last name")
	fs.BoolVar(&o.PasswordStdin, "password-stdin", false, "read the password from stdin instead of prompting")
	fs.BoolVar(&o.Promote, "promote", false, "grant superuser rights to the existing account with -email")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	switch {
	case o.Promote && o.Email == "":
		return options{}, fmt.Errorf("-email is required")
	case !o.Promote && (o.Email == "" || o.Username == ""):
		return options{}, fmt.Errorf("-email and -username are required")
	}
	return o, nil
}

// password reads a single line from stdin, or prompts twice on a terminal.
func password(o options, stdin io.Reader, stdout io.Writer, fd int) (string, string, error) {
	if o.PasswordStdin {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", "", fmt.Errorf("read password from stdin: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		return line, line, nil
	}

	prompt := func(label string) (string, error) {
		if _, err := fmt.Fprint(stdout, label); err != nil {
			return "", err
		}
		pw, err := readPassword(fd)
		fmt.Fprintln(stdout)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	pw, err := prompt("Password: ")
	if err != nil {
		return "", "", err
	}
	confirm, err := prompt("Password (again): ")
	if err != nil {
		return "", "", err
	}
	return pw, confirm, nil
}

func run(ctx context.Context, svc appsvc.Service, o options, stdin io.Reader, stdout io.Writer, fd int) error {
	if o.Promote {
		user, err := svc.Promote(ctx, o.Email)
		if err != nil {
			if customErrors.IsNotFound(err) {
				fmt.Fprintf(stdout, "No user with email %s.\n", o.Email)
			}
			return err
		}
		fmt.Fprintf(stdout, "User %s is now a superuser.\n", user.ID)
		return nil
	}

	pw, confirm, err := password(o, stdin, stdout, fd)
	if err != nil {
		return err
	}

	user, err := svc.CreateSuperuser(ctx, dto.RegisterDTO{
		Email:           o.Email,
		Username:        o.Username,
		FirstName:       o.FirstName,
		LastName:        o.LastName,
		Password:        pw,
		PasswordConfirm: confirm,
	})
	if err != nil {
		if ve, ok := customErrors.AsValidation(err); ok {
			for field, msgs := range ve.Messages() {
				for _, m := range msgs {
					fmt.Fprintf(stdout, "%s: %s\n", field, m)
				}
			}
		}
		return err
	}

	fmt.Fprintf(stdout, "Superuser created successfully (id %s).\n", user.ID)
	return nil
}

func main() {
	_ = godotenv.Load()

	o, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.LoadStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	zapLog := lg.Must(cfg.LogLevel, cfg.ServiceName)
	defer zapLog.Sync()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		zapLog.Fatal("failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		zapLog.Fatal("db handle", zap.Error(err))
	}
	defer sqlDB.Close()
	if err := migrate.Up(sqlDB); err != nil {
		zapLog.Fatal("run migrations", zap.Error(err))
	}

	userRepo := pgrepo.NewPostgresUserRepo(db)
	svc := appsvc.New(userRepo, pgrepo.NewPostgresProfileRepo(db), nil, nil,
		validate.New(validate.DefaultPasswordPolicy(), userRepo), cfg, zapLog)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := run(ctx, svc, o, os.Stdin, os.Stdout, int(os.Stdin.Fd())); err != nil {
		zapLog.Error("createsuperuser failed", zap.Error(err))
		sqlDB.Close()
		os.Exit(1)
	}
}
