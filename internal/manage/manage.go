// Package manage implements the administrative commands run next to the
// server: applying migrations, provisioning superusers and uploading
// resource attachments.
package manage

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dmitrijs2005/stavros/internal/common"
	"github.com/dmitrijs2005/stavros/internal/flagx"
	"github.com/dmitrijs2005/stavros/internal/logging"
	"github.com/dmitrijs2005/stavros/internal/netx"
	"github.com/dmitrijs2005/stavros/internal/server/config"
	"github.com/dmitrijs2005/stavros/internal/server/models"
	"github.com/dmitrijs2005/stavros/internal/server/notify"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/stavros/internal/server/services"
)

// PasswordEnv supplies the superuser password when -noinput is given.
const PasswordEnv = "STAVROS_SUPERUSER_PASSWORD"

const usage = `Usage: manage <command> [flags]

Commands:
  migrate                                  apply database migrations
  createsuperuser [-email E] [-name N] [-noinput]
                                           create a verified administrator
  attach -resource ID -file PATH           upload a file for a resource
`

var ErrUnknownCommand = errors.New("unknown command")

type superuserCreator interface {
	CreateSuperuser(ctx context.Context, email, name, password string) (*models.User, error)
}

type attachmentPresigner interface {
	PresignUpload(ctx context.Context, resourceID string) (key, url string, err error)
}

type App struct {
	db       *sql.DB
	migrate  func(ctx context.Context) error
	accounts superuserCreator
	storage  attachmentPresigner
	upload   func(ctx context.Context, url string, data []byte) error
	readFile func(name string) ([]byte, error)
	getenv   func(key string) string
	in       *bufio.Reader
	out      io.Writer
}

// NewApp connects to the database described by c.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stderr, c.LogFormat, c.LogLevel)

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	m := repomanager.NewPostgresRepositoryManager()

	return &App{
		db: db,
		migrate: func(ctx context.Context) error {
			return m.RunMigrations(ctx, db)
		},
		accounts: services.NewAccountService(db, m, notify.NewLogNotifier(logger), logger, c),
		storage:  services.NewStorageService(db, m, c),
		upload:   netx.PutPresigned,
		readFile: os.ReadFile,
		getenv:   os.Getenv,
		in:       bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}, nil
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Run executes the subcommand named in args.
func (a *App) Run(ctx context.Context, args []string) error {
	cmd, rest := flagx.SplitCommand(args)

	switch cmd {
	case "migrate":
		if err := a.migrate(ctx); err != nil {
			return fmt.Errorf("migration error: %w", err)
		}
		fmt.Fprintln(a.out, "Migrations applied.")
		return nil
	case "createsuperuser":
		return a.createSuperuser(ctx, rest)
	case "attach":
		return a.attach(ctx, rest)
	case "", "help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

func (a *App) createSuperuser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	fs.SetOutput(a.out)
	email := fs.String("email", "", "administrator email")
	name := fs.String("name", "", "display name")
	noInput := fs.Bool("noinput", false, "do not prompt; read the password from "+PasswordEnv)
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-email", "-name", "-noinput"})); err != nil {
		return err
	}

	var err error
	if *email == "" {
		if *noInput {
			return errors.New("-email is required with -noinput")
		}
		if *email, err = GetSimpleText(a.in, "Email address", a.out); err != nil {
			return err
		}
	}

	password, err := a.superuserPassword(*noInput)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, err := a.accounts.CreateSuperuser(ctx, *email, *name, string(password))
	if err != nil {
		var verr *common.ValidationError
		switch {
		case errors.As(err, &verr):
			a.printFieldErrors(verr)
			return errors.New("superuser not created")
		case errors.Is(err, common.ErrEmailTaken):
			return fmt.Errorf("superuser not created: %w", err)
		default:
			return err
		}
	}

	fmt.Fprintf(a.out, "Superuser %s created.\n", user.Email)
	return nil
}

func (a *App) superuserPassword(noInput bool) ([]byte, error) {
	if noInput {
		pw := a.getenv(PasswordEnv)
		if pw == "" {
			return nil, fmt.Errorf("%s is not set", PasswordEnv)
		}
		return []byte(pw), nil
	}

	pw, err := GetPassword("Password", a.out)
	if err != nil {
		return nil, err
	}
	again, err := GetPassword("Password (again)", a.out)
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}
	defer common.WipeByteArray(again)

	if !bytes.Equal(pw, again) {
		common.WipeByteArray(pw)
		return nil, errors.New("passwords didn't match")
	}
	return pw, nil
}

func (a *App) printFieldErrors(verr *common.ValidationError) {
	fields := make([]string, 0, len(verr.Fields))
	for f := range verr.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(a.out, "Error (%s): %s\n", f, verr.Fields[f])
	}
}

func (a *App) attach(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("attach", flag.ContinueOnError)
	fs.SetOutput(a.out)
	resourceID := fs.String("resource", "", "resource id")
	path := fs.String("file", "", "file to upload")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-resource", "-file"})); err != nil {
		return err
	}
	if *resourceID == "" || *path == "" {
		return errors.New("-resource and -file are required")
	}

	data, err := a.readFile(*path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	key, url, err := a.storage.PresignUpload(ctx, *resourceID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("resource %s: %w", *resourceID, err)
		}
		return err
	}

	if err := a.upload(ctx, url, data); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Uploaded %d bytes as %s.\n", len(data), key)
	return nil
}
