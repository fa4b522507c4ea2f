package resp

import (
	"strconv"
	"strings"
)

// String renders v the way redis-cli prints replies
func (v Value) String() string {
	var b strings.Builder
	v.format(&b, 0)
	return b.String()
}

func (v Value) format(b *strings.Builder, indent int) {
	switch v.kind {
	case KindInteger:
		b.WriteString("(integer) ")
		b.WriteString(strconv.FormatInt(v.num, 10))
	case KindSimpleString:
		b.Write(v.str)
	case KindError:
		b.WriteString("(error) ")
		b.Write(v.str)
	case KindBulkString:
		if v.null {
			b.WriteString("(nil)")
			return
		}
		b.WriteString(strconv.Quote(string(v.str)))
	case KindArray:
		if v.null {
			b.WriteString("(nil)")
			return
		}
		if len(v.arr) == 0 {
			b.WriteString("(empty array)")
			return
		}
		width := len(strconv.Itoa(len(v.arr)))
		for i, el := range v.arr {
			if i > 0 {
				b.WriteByte('\n')
				b.WriteString(strings.Repeat(" ", indent))
			}
			num := strconv.Itoa(i + 1)
			b.WriteString(strings.Repeat(" ", width-len(num)))
			b.WriteString(num)
			b.WriteString(") ")
			el.format(b, indent+width+2)
		}
	default:
		b.WriteString("(unknown)")
	}
}
