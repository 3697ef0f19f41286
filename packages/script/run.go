package script

import (
	"context"

	"github.com/abdul-hamid-achik/hitcase/packages/collection"
)

// Run executes scopes in order. Each script sees a clone of the context
// carrying the previous scripts' changes; on the first error the context as
// of that failure is returned with it.
func (h *Host) Run(ctx context.Context, scopes []collection.ScriptScope, c Context) (Context, error) {
	for _, scope := range scopes {
		step := c.Clone()
		step.ScopeName = scope.Scope
		out, err := h.Execute(ctx, scope.Script, step)
		c.Merge(out)
		if err != nil {
			return c, err
		}
	}
	return c, nil
}

// Run uses a default Host.
func Run(ctx context.Context, scopes []collection.ScriptScope, c Context) (Context, error) {
	return NewHost().Run(ctx, scopes, c)
}
