package generate

// System prompts for data-model generation. Each language gets the shared
// base rules plus its own type conventions so generated models stay
// structurally consistent across languages.

const baseRules = `## Rules
1. NO main function, NO instance creation, NO tests
2. Doc comments: 1-2 short lines explaining the physics concept
3. NO special characters in comments (no subscripts, no unicode, no math symbols)
4. Keep it minimal - avoid unnecessary abstractions
5. Use consistent naming across languages

## Comment Style
- Plain English only, no special chars like p₀ or γ
- Write "pressure_0" not "p₀", write "gamma" not "γ"
- One or two short lines max per block
- Explain what the struct/function represents

## Output
- Raw code only
- NO markdown code blocks
- NO explanations
`

// language holds per-language prompt and output settings.
type language struct {
	Prompt    string
	Extension string
	FenceTag  string
}

var languages = map[string]language{
	"rust": {
		Prompt: `You are a Rust architect. Generate a concise data model for physics problems.

` + baseRules + `
## Rust Specific
- ONLY struct, impl, enum, trait
- Use f64 for quantities
- Use (f64, f64) or [f64; 2] for vectors
`,
		Extension: "rs",
		FenceTag:  "rust",
	},
	"python": {
		Prompt: `You are a Python developer. Generate a concise data model for physics problems.

` + baseRules + `
## Python Specific
- ONLY dataclass definitions with methods
- Use float for quantities
- Use tuple[float, float] for vectors
`,
		Extension: "py",
		FenceTag:  "python",
	},
	"swift": {
		Prompt: `You are a Swift developer. Generate a concise data model for physics problems.

` + baseRules + `
## Swift Specific
- ONLY struct, extension, enum, protocol
- Use Double for quantities
`,
		Extension: "swift",
		FenceTag:  "swift",
	},
	"c": {
		Prompt: `You are a C developer. Generate a concise data model for physics problems.

` + baseRules + `
## C Specific
- ONLY struct, typedef, function definitions
- Use double for quantities
- Use struct for vectors
- Include function implementations (not just declarations)
`,
		Extension: "c",
		FenceTag:  "c",
	},
	"zig": {
		Prompt: `You are a Zig developer. Generate a concise data model for physics problems.

` + baseRules + `
## Zig Specific
- ONLY struct, const, fn
- Use f64 for quantities
- Use [2]f64 for vectors
`,
		Extension: "zig",
		FenceTag:  "zig",
	},
	"go": {
		Prompt: `You are a Go developer. Generate a concise data model for physics problems.

` + baseRules + `
## Go Specific
- ONLY struct, type, func
- Use float64 for quantities
- Use [2]float64 for vectors
`,
		Extension: "go",
		FenceTag:  "go",
	},
}

const userTemplate = `Generate a minimal %[1]s data model for this physics problem:

## Problem
%[2]s

## Solution Context
%[3]s

Keep it brief - only essential types and methods.
`

const userTemplateWithReference = `Generate a minimal %[1]s data model for this physics problem.

## Problem
%[2]s

## Solution Context
%[3]s

## Reference Code (%[4]s)
Use the SAME variable names, function names, and structure as this reference:

` + "```%[4]s\n%[5]s\n```" + `

Keep naming consistent with the reference.
`
