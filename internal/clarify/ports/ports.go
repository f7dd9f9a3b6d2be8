// Package ports declares the interfaces the clarification flow depends on.
package ports

import (
	"context"
	"errors"

	clarify "leadgate/internal/clarify/models"
	"leadgate/internal/intake/models"
)

// ErrCannotContinue is returned by a QuestionGenerator when no further
// question can be produced for the snapshot. The flow treats it as a signal
// to stop clarifying and hand the lead to a human.
var ErrCannotContinue = errors.New("no further clarifying question available")

// QuestionGenerator produces the next clarifying question for an intake
// snapshot. asked lists the target fields of questions already posed in this
// session; implementations must not repeat them.
//
// Implementations must honor ctx cancellation: the caller bounds each call
// with a deadline and degrades the session to manual review on timeout.
type QuestionGenerator interface {
	Next(ctx context.Context, snapshot models.IntakeRecord, asked []string) (clarify.Question, error)
}
