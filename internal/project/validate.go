package project

import (
	"context"
	"fmt"
	"strings"

	"github.com/beequen/beequen/internal/core"
)

// ValidationQuery is submitted to check that a profile can run jobs.
const ValidationQuery = "select 1 /* Beequen validation query */"

// Validate connects with the given profile and submits ValidationQuery. It
// returns nil when the job was accepted. The job is not awaited.
func Validate(ctx context.Context, dialer core.Dialer, input CreateInput) error {
	if strings.TrimSpace(input.ProjectID) == "" {
		return missingProjectID()
	}

	backend, err := dialer.Dial(ctx, core.ConnectionProfile{
		ProjectID:       input.ProjectID,
		CredentialsPath: input.CredentialsPath,
	})
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", input.ProjectID, err)
	}
	defer backend.Close()

	if _, err := backend.Submit(ctx, ValidationQuery); err != nil {
		return fmt.Errorf("validating %s: %w", input.ProjectID, err)
	}
	return nil
}
