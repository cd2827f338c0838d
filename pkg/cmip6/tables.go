package cmip6

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// ErrInvalidRef is returned for a data_specs_version that cannot name a
// tag of the tables repository.
var ErrInvalidRef = errors.New("invalid CMOR tables ref")

// tableRefPattern matches tag names such as 01.00.23. A leading "-" would
// be read by git as an option.
var tableRefPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// TableRepo keeps the CMOR tables checkout at the version a file was
// written against.
type TableRepo interface {
	Checkout(ctx context.Context, tablePath, specVersion string) error
}

// GitTableRepo switches a git checkout of the CMOR tables to the tag named
// after the data_specs_version. Paths that are not git checkouts are left
// alone.
type GitTableRepo struct {
	Git     string
	Offline bool
	logger  *zap.Logger
}

// NewGitTableRepo returns a repo that runs the git found on PATH.
func NewGitTableRepo(offline bool, logger *zap.Logger) *GitTableRepo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitTableRepo{Git: "git", Offline: offline, logger: logger}
}

// Checkout switches tablePath to the tag specVersion. Refs that could be
// read as git options are rejected with ErrInvalidRef.
func (r *GitTableRepo) Checkout(ctx context.Context, tablePath, specVersion string) error {
	if !tableRefPattern.MatchString(specVersion) || strings.Contains(specVersion, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidRef, specVersion)
	}

	if _, err := r.run(ctx, tablePath, "rev-parse", "--show-toplevel"); err != nil {
		r.logger.Debug("CMOR table path is not a git checkout", zap.String("path", tablePath))
		return nil
	}

	if !r.Offline {
		if _, err := r.run(ctx, tablePath, "fetch", "--tags", "--quiet"); err != nil {
			r.logger.Warn("Failed to fetch CMOR table tags", zap.String("path", tablePath), zap.Error(err))
		}
	}

	if _, err := r.run(ctx, tablePath, "checkout", "--quiet", specVersion, "--"); err != nil {
		return fmt.Errorf("failed to check out CMOR tables %s: %w", specVersion, err)
	}

	r.logger.Info("Checked out CMOR tables",
		zap.String("path", tablePath),
		zap.String("data_specs_version", specVersion))
	return nil
}

func (r *GitTableRepo) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.Git, append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}
