package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/pecuschain/farmsync/internal/cloud"
	"github.com/pecuschain/farmsync/internal/config"
)

// ErrNotRegistered indicates no farm identity is configured and the
// agent cannot ask for one (no interactive terminal).
var ErrNotRegistered = errors.New("agent: no farm identity configured; run 'farmsync register' first")

// Registrar is the slice of the cloud client identity resolution needs.
type Registrar interface {
	RegisterFarm(ctx context.Context, name string) (*cloud.Registration, error)
}

// IdentityResolver produces the farm identity the agent runs under.
// Resolution order: configured value (which Resolve's caller has
// already layered with env and CLI overrides), then interactive
// registration on a terminal. The resolved identity is immutable for
// the life of the process.
type IdentityResolver struct {
	registrar  Registrar
	configPath string
	logger     *slog.Logger

	// Interactive surface, injectable for tests.
	stdin      io.Reader
	stdout     io.Writer
	isTerminal func() bool
}

// NewIdentityResolver creates a resolver that persists a newly
// registered identity into the config file at configPath.
func NewIdentityResolver(registrar Registrar, configPath string, logger *slog.Logger) *IdentityResolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &IdentityResolver{
		registrar:  registrar,
		configPath: configPath,
		logger:     logger,
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		isTerminal: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
	}
}

// Resolve returns the farm identity for this run. If the config
// carries none and stdin is a terminal, the operator is walked through
// first-time registration and the result is persisted; otherwise
// ErrNotRegistered is returned so a headless service fails loudly
// instead of syncing into nowhere.
func (r *IdentityResolver) Resolve(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.FarmID != "" {
		return cfg.FarmID, nil
	}

	if !r.isTerminal() {
		return "", ErrNotRegistered
	}

	fmt.Fprintln(r.stdout, "No farm identity configured. Let's register this farm.")
	fmt.Fprint(r.stdout, "Farm name: ")

	name, err := bufio.NewReader(r.stdin).ReadString('\n')
	if err != nil && name == "" {
		return "", fmt.Errorf("agent: reading farm name: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("agent: farm name must not be empty")
	}

	reg, err := r.Register(ctx, name)
	if err != nil {
		return "", err
	}

	fmt.Fprintf(r.stdout, "Registered %q with farm ID %s\n", reg.Name, reg.FarmID)

	return reg.FarmID, nil
}

// Register creates the farm on the cloud side and persists the
// assigned identity into the config file. Used by both interactive
// resolution and the register command.
func (r *IdentityResolver) Register(ctx context.Context, name string) (*cloud.Registration, error) {
	reg, err := r.registrar.RegisterFarm(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("agent: registering farm: %w", err)
	}

	if err := config.SaveFarmID(r.configPath, reg.FarmID); err != nil {
		return nil, fmt.Errorf("agent: persisting farm identity: %w", err)
	}

	r.logger.Info("farm registered",
		slog.String("farm_id", reg.FarmID),
		slog.String("name", reg.Name),
	)

	return reg, nil
}
