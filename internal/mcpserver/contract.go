package mcpserver

// ReferenceSyntaxContract describes the canonical reference syntax that
// LLM consumers should follow when writing note content.
const ReferenceSyntaxContract = `# Gebo Reference Syntax

Note content links to other notes with double-bracket references.

## Syntax

` + "```" + `markdown
Plain text with a reference to [[another-note]] inline.

Multiple references are fine: [[first]], [[second]], [[first]] again.
` + "```" + `

## Rules

1. **A reference is ` + "`" + `[[label]]` + "`" + `.** The label is matched against note slugs
   within the same owner namespace.
2. **Labels may not contain ` + "`" + `]` + "`" + `.** The reference ends at the first ` + "`" + `]]` + "`" + `.
3. **Whitespace around the label is ignored.** ` + "`" + `[[ intro ]]` + "`" + ` and ` + "`" + `[[intro]]` + "`" + `
   resolve the same way.
4. **Trailing hyphens are tolerated.** ` + "`" + `[[draft]]` + "`" + ` resolves to a note whose
   slug is ` + "`" + `draft-` + "`" + ` and vice versa.
5. **Self-references are ignored.** A note never links to itself.
6. **Unresolved labels are not errors.** They are reported back so the link
   can start working once the target note is created.

## Example

` + "```" + `markdown
The [[intro]] covers the basics; see [[advanced-topics]] for the rest.
` + "```" + `
`
