package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/sprite-ai/easygit/internal/app"
	"github.com/sprite-ai/easygit/internal/browser"
	"github.com/sprite-ai/easygit/internal/config"
	"github.com/sprite-ai/easygit/internal/credstore"
	"github.com/sprite-ai/easygit/internal/github"
	"github.com/sprite-ai/easygit/internal/model"
	"github.com/sprite-ai/easygit/internal/revert"
)

var errNotLoggedIn = errors.New("not logged in, run easygit login")

const callTimeout = 30 * time.Second

// logTarget selects where an environment's logs go.
type logTarget int

const (
	logQuiet  logTarget = iota // stderr with --debug, otherwise discarded
	logStderr                  // long-running commands
	logFile                    // the state dir log, for commands that own the terminal
)

// env is everything a command needs, built from the config file and the
// persistent flags.
type env struct {
	cfg     *config.Config
	logOut  io.Writer
	logger  *log.Logger
	backend credstore.Backend
	store   *credstore.Store
	gateway *github.Client

	closers []io.Closer
}

func setup(cmd *cobra.Command, target logTarget) (*env, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if v, _ := flags.GetString("store-backend"); v != "" {
		cfg.Store.Backend = v
	}
	if v, _ := flags.GetString("api-url"); v != "" {
		cfg.APIURL = strings.TrimRight(v, "/")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, logOut: io.Discard}
	debug, _ := flags.GetBool("debug")
	switch {
	case debug || target == logStderr:
		e.logOut = cmd.ErrOrStderr()
	case target == logFile:
		if f, err := openLog(cfg.LogPath()); err == nil {
			e.logOut = f
			e.closers = append(e.closers, f)
		}
	}
	e.logger = e.sub("[easygit] ")

	switch cfg.Store.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
		e.closers = append(e.closers, rdb)
		e.backend = credstore.NewRedisBackend(rdb, cfg.Store.RedisPrefix)
	case config.BackendMemory:
		e.backend = credstore.NewMemoryBackend()
	default:
		e.backend = credstore.NewFileBackend(cfg.StateDir)
	}
	e.store = credstore.New(e.backend, e.sub("[credstore] "))

	if p, _ := flags.GetString("local-repo"); p != "" {
		abs, err := filepath.Abs(p)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("local repo: %w", err)
		}
		e.store.SaveLocalRepoPath(abs)
	}

	e.gateway = github.New(cfg.APIURL)
	if debug || target != logQuiet {
		e.gateway.Logger = e.sub("[github] ")
	}
	return e, nil
}

func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

func (e *env) sub(prefix string) *log.Logger {
	return log.New(e.logOut, prefix, log.LstdFlags)
}

// Close releases the redis client and the log file.
func (e *env) Close() {
	for _, c := range e.closers {
		c.Close()
	}
}

func (e *env) reverter() revert.Reverter {
	author := revert.Author{Name: e.cfg.Revert.AuthorName, Email: e.cfg.Revert.AuthorEmail}
	logger := e.sub("[revert] ")
	if e.cfg.Revert.Engine == config.EngineExec {
		return revert.NewExecReverter(author, e.store.LoadLocalRepoPath, logger)
	}
	return revert.NewGoGitReverter(author, logger)
}

func (e *env) controller() *app.Controller {
	return app.New(app.Options{
		Gateway:       e.gateway,
		Store:         e.store,
		Reverter:      e.reverter(),
		Opener:        browser.Default(e.cfg.Open.Command),
		Logger:        e.sub("[app] "),
		ToastDuration: e.cfg.ToastDuration(),
	})
}

// session validates the stored token.
func (e *env) session(ctx context.Context) (model.Session, error) {
	token := e.store.Load()
	if token == "" {
		return model.Session{}, errNotLoggedIn
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	user, err := e.gateway.ValidateToken(ctx, token)
	if err != nil {
		var authErr *github.AuthError
		if errors.As(err, &authErr) {
			return model.Session{}, fmt.Errorf("stored token was rejected (%v), run easygit login", err)
		}
		return model.Session{}, err
	}
	return model.Session{Token: token, Login: user.Login}, nil
}

// findRepo resolves "owner/name" among the user's repositories.
func (e *env) findRepo(ctx context.Context, sess model.Session, fullName string) (model.Repository, error) {
	if owner, name, ok := strings.Cut(fullName, "/"); !ok || owner == "" || name == "" {
		return model.Repository{}, fmt.Errorf("repository must be owner/name, got %q", fullName)
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	repos, err := e.gateway.ListRepositories(ctx, sess.Token)
	if err != nil {
		return model.Repository{}, err
	}
	for _, r := range repos {
		if strings.EqualFold(r.FullName, fullName) {
			return r, nil
		}
	}
	return model.Repository{}, fmt.Errorf("repository %s not found among your repositories", fullName)
}
