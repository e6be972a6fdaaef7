package agent

import "github.com/seobando/agentkit/core"

// Provider supplies instruction text at run time.
type Provider interface {
	Instruction(ic *core.InvocationContext) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ic *core.InvocationContext) (string, error)

// Instruction implements Provider.
func (f ProviderFunc) Instruction(ic *core.InvocationContext) (string, error) { return f(ic) }

// Instruction is either a static template or a dynamic provider. Static
// text may reference state with {key} placeholders.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates a static instruction.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates a dynamic instruction.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates a dynamic instruction from a function.
func NewInstructionFromFunc(f func(ic *core.InvocationContext) (string, error)) Instruction {
	return Instruction{provider: ProviderFunc(f)}
}

// IsStatic reports whether the instruction is a fixed template.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// IsZero reports whether no instruction was set.
func (i Instruction) IsZero() bool { return i.provider == nil && i.text == "" }

// Resolve returns the instruction text, calling the provider if needed.
func (i Instruction) Resolve(ic *core.InvocationContext) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(ic)
	}
	return i.text, nil
}
