package mcpserver

// MarkdownFormatContract describes the layout of exported manuscripts and
// the edits that survive an import back into the project.
const MarkdownFormatContract = `# ywmark Markdown Format Contract

An exported manuscript is a flat Markdown file. The project it came from
(` + "`" + `novel.yw7` + "`" + ` for ` + "`" + `novel.md` + "`" + `) keeps everything the file does not show:
notes, characters, locations, items, dates and custom fields.

## Structure

` + "```" + `markdown
**Project title**  
  
*Author*  
  

# Part heading

## Chapter heading

<!---Scene title--->First scene text.

Second paragraph of the first scene.

* * *

<!---Next scene--->Second scene text.
` + "```" + `

## Rules

1. **Headings open chapters.** ` + "`" + `# ` + "`" + ` is a part, ` + "`" + `## ` + "`" + ` (or deeper) is an ordinary
   chapter. Text before the first heading is ignored on import.
2. **Scenes are separated by a line holding only ` + "`" + `* * *` + "`" + `.** The first scene
   of a chapter starts right after its heading.
3. **Identity is positional.** Chapters and scenes are numbered from 1 in file
   order and matched to the project by that number. Adding a scene or a
   chapter shifts every later number: the import is then refused as a
   structural mismatch and the project is left untouched.
4. **Scene titles** are an HTML comment opening the scene:
   ` + "`" + `<!---Title--->` + "`" + `. Changing the comment renames the scene.
5. **Emphasis:** ` + "`" + `*italic*` + "`" + ` and ` + "`" + `**bold**` + "`" + `. Other Markdown is kept as plain text.
6. **Paragraphs** are separated by one blank line.
7. **Word counts and status** are recomputed on import: a scene under ten
   words is an outline, longer scenes become drafts.
8. **Encoding** is UTF-8.

## Safe edits

- Rewrite scene text, fix typos, add or remove paragraphs.
- Rename chapters and scenes.
- Change the project title in the first line.

## Edits that need the desktop application

- Adding, removing, splitting or reordering scenes and chapters.
- Anything about characters, locations or items.
`
