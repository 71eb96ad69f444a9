package shell

import (
	"fmt"
	"io"
)

const helpText = `
Available commands:
  ls                       List children of the current node
  cd <tag>                 Move into a child node (or an absolute tag)
  up                       Move to the parent node
  root                     Move to the root node

  read <tag>               Read a tag's current value
  write <tag[:type]> <val> Write a value; quote values containing spaces
  monitor <tag>            Print value changes until Enter or Ctrl-C

  help                     Show this help
  exit                     Disconnect and quit

Type hints for write (case-insensitive):
  i8 sbyte | u8 byte | i16 short | u16 ushort | i i32 int | u32 uint
  i64 long | u64 ulong | f float single | d double | m decimal
  b bool | s string text
`

// PrintHelp writes the command summary to w.
func PrintHelp(w io.Writer) {
	fmt.Fprint(w, helpText)
}
