package mcpserver

// LinkSyntaxContract describes the link and reference syntax understood by
// noteweave, for LLM consumers that read or write notes.
const LinkSyntaxContract = `# noteweave Link Syntax

Notes live in vaults. A note is addressed by its vault name and its fname:
the file name without the .md extension. Dots in an fname separate
hierarchy levels (` + "`" + `project.roadmap` + "`" + `). Fnames are case sensitive.

## Wikilinks

` + "```" + `markdown
[[fname]]                         link to a note in any vault
[[fname#heading-slug]]            link to a heading
[[fname#^block-label]]            link to a labelled block
[[#heading-slug]]                 link inside the current note
[[Display text|fname]]            alias shown instead of the fname
[[dendron://vault/fname]]         link to a note of a specific vault
` + "```" + `

Heading anchors are slugs: lowercase, spaces become ` + "`" + `-` + "`" + `,
punctuation is dropped. Repeated headings get ` + "`" + `-1` + "`" + `, ` + "`" + `-2` + "`" + ` suffixes.

## Block labels

End a paragraph, list item or table row with ` + "`" + ` ^label` + "`" + ` (letters,
digits and dashes) to make it addressable. A line holding only ` + "`" + `^label` + "`" + `
labels the block right above it.

## Note references

References embed content instead of linking to it:

` + "```" + `markdown
![[fname]]                        the whole note
![[fname#*]]                      the whole note
![[fname#intro]]                  from the intro heading to the end of the note
![[fname#intro:#outro]]           from intro through the outro block
![[fname#^item,2]]                the ^item block and the two blocks after it
![[dendron://vault/fname#intro]]  from a specific vault
` + "```" + `

The legacy form ` + "`" + `((ref: [[fname]]#anchor))` + "`" + ` is still read; the
normalize_refs tool converts it to ` + "`" + `![[fname#anchor]]` + "`" + `.

## Resolution

A link without a vault matches the fname in every vault. When more than one
vault holds the fname the link is ambiguous; depending on the configured
policy it fails, resolves to the first vault in workspace order, or prefers
the vault of the linking note. References nest up to a fixed depth; cycles
and unresolvable references render as ` + "`" + `ERROR: <reason>` + "`" + ` in expanded output.

Links inside code spans, code blocks and standard Markdown links are ignored.
`
