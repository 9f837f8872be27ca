package mcpserver

// RecordFormatContract documents the on-disk record format, served as
// the othala://record-format MCP resource.
const RecordFormatContract = `# Record Format Contract

Every entry is one JSON object stored as ` + "`<category>/<identifier>.json`" + `.

## Fields

- ` + "`name`" + ` or ` + "`title`" + ` (string): the display name. At least one is
  required when no explicit identifier is given; the identifier is
  derived from it (unsafe characters and whitespace become underscores).
- ` + "`type`" + ` (string, optional): the record kind. ` + "`text`" + ` marks a
  free-text entry; other values (` + "`person`" + `, ` + "`concept`" + `,
  ` + "`reference`" + `, ...) are caller-defined.
- ` + "`content`" + ` (string): the body of a text entry.
- Any further fields pass through unchanged: scalars, arrays, and
  nested objects are all preserved and searchable.

## System metadata

The store injects a ` + "`_metadata`" + ` object on every write and replaces any
caller-supplied one:

` + "```json" + `
{
  "name": "Einstein",
  "type": "person",
  "_metadata": {
    "timestamp": "2026-03-14T09:26:53Z",
    "category": "science"
  }
}
` + "```" + `

` + "`_metadata`" + ` is excluded from keyword search.

## Categories

Default partitions: ` + "`general`" + `, ` + "`science`" + `, ` + "`technology`" + `,
` + "`personal`" + `. Omitting the category stores into ` + "`general`" + `; retrieval
without a category scans all partitions alphabetically and the first
match wins.

## Semantics

- Storing an entry with an existing identifier replaces the whole
  record. Fields are never merged.
- Search matches any keyword as a case-insensitive substring of any
  string field, ranked by the number of distinct keywords matched.
`
