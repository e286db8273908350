package outbound

import "context"

type DecomposeScriptParams struct {
	SystemInstructions string
	UserContent        string
}

// ScriptDecomposerPort is the LLM boundary: one synchronous call that
// returns the raw model completion. Shape validation happens in the
// scene decomposer service.
type ScriptDecomposerPort interface {
	Decompose(ctx context.Context, params DecomposeScriptParams) (string, error)
}
