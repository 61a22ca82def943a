package report

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
)

// UserLogger provides user-friendly feedback about file events while an
// apply run is in flight. Everything is mirrored to zerolog for debugging.
type UserLogger struct {
	log     zerolog.Logger
	enabled bool
}

// NewUserLogger creates a user logger. Disabled loggers still feed zerolog.
func NewUserLogger(ctx context.Context, enabled bool) *UserLogger {
	return &UserLogger{
		log:     *zerolog.Ctx(ctx),
		enabled: enabled,
	}
}

// LogFile logs one file outcome with a pterm printer matched to its action.
func (u *UserLogger) LogFile(result FileResult) {
	msg := fmt.Sprintf("%s -> %s", result.SourceRel, result.TargetRel)

	var printer *pterm.PrefixPrinter
	switch result.Action {
	case ActionCreate:
		printer = pterm.Success.WithPrefix(pterm.Prefix{Text: "create"})
	case ActionUpdate:
		printer = pterm.Info.WithPrefix(pterm.Prefix{Text: "update"})
	default:
		printer = pterm.Debug.WithPrefix(pterm.Prefix{Text: "skip"})
	}

	if u.enabled {
		printer.Println(msg)
	}
	u.log.Debug().Str("action", string(result.Action)).Int("hits", result.Hits).Msg(msg)
}

// LogStage announces a run stage transition (planning, applying, verifying).
func (u *UserLogger) LogStage(stage string) {
	if u.enabled {
		pterm.DefaultSection.Println(stage)
	}
	u.log.Info().Msg(stage)
}

// LogWarning surfaces a diagnostic as it is recorded.
func (u *UserLogger) LogWarning(d Diagnostic) {
	if u.enabled {
		pterm.Warning.Println(diagLine(d))
	}
	u.log.Warn().Str("stage", d.Stage).Str("path", d.Path).Msg(d.Message)
}
