// Package dsl 解析课时大纲文本（.lesson），并把它编译成页面元数据。
//
// 大纲由指令（course/module/lesson/topic/...，可带参数和花括号块）、
// `key: value` 属性以及独立的字符串消息组成，换行或分号分隔语句。
package dsl

import (
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	outlineLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `(?:#|//)[^\n]*`},
		{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
		{Name: "Number", Pattern: `\d+(?:\.\d+)?(?:min|mm|cm|in|pt|px|%)?`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Brace", Pattern: `[{}]`},
		{Name: "Semi", Pattern: `;`},
		{Name: "Colon", Pattern: `:`},
		{Name: "Punct", Pattern: `[-+*/.,'!?()\[\]%&<>=@]`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
	})

	outlineParser = participle.MustBuild[Outline](
		participle.Lexer(outlineLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(2),
	)
)

// Outline 是一份大纲文件。
type Outline struct {
	Pos        lexer.Position `parser:"" json:"-"`
	Statements []*Statement   `parser:"Newline* ( @@ ( ';' | Newline )* )*"`
}

// Block 是花括号包围的语句列表。
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement 三选一。
type Statement struct {
	Assignment *Assignment `parser:"  @@"`
	Command    *Command    `parser:"| @@"`
	Text       *Text       `parser:"| @@"`
}

// Assignment 是 `key: value`。
type Assignment struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident ':'"`
	Value *Value         `parser:"@@"`
}

// Command 是 `topic "Title" { ... }`；块必须与指令同行开始。
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Arg         `parser:"@@*"`
	Block *Block         `parser:"@@?"`
}

// Arg 是指令参数：字符串、数字或标识符。
type Arg struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Value Literal        `parser:"@(String | Number | Ident)"`
}

// Text 是块内单独成行的字符串，编译为提示消息。
type Text struct {
	Value Literal `parser:"@String"`
}

// Value 是属性值：一个字符串，或直到行尾的若干裸词（如 Group work、2025-03-04）。
type Value struct {
	String *Literal `parser:"  @String"`
	Words  []*Word  `parser:"| @@+"`
}

// Word 是裸值中的一个 token。
type Word struct {
	Number string `parser:"  @Number"`
	Ident  string `parser:"| @Ident"`
	Punct  string `parser:"| @(Punct | ':')"`
}

func (w *Word) text() string {
	switch {
	case w.Number != "":
		return w.Number
	case w.Ident != "":
		return w.Ident
	default:
		return w.Punct
	}
}

// Text 返回值的文本形式。相邻两个单词之间补一个空格，标点两侧不留空。
func (v *Value) Text() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return string(*v.String)
	}
	var b strings.Builder
	for i, w := range v.Words {
		if i > 0 && w.Punct == "" && v.Words[i-1].Punct == "" {
			b.WriteByte(' ')
		}
		b.WriteString(w.text())
	}
	return b.String()
}

// Literal 捕获时去掉字符串的引号并处理转义。
type Literal string

// Capture implements participle.Capture.
func (l *Literal) Capture(values []string) error {
	v := strings.Join(values, "")
	if strings.HasPrefix(v, `"`) {
		unquoted, err := strconv.Unquote(v)
		if err != nil {
			return err
		}
		v = unquoted
	}
	*l = Literal(v)
	return nil
}

// Parse parses outline content from an io.Reader.
func Parse(r io.Reader) (*Outline, error) {
	return outlineParser.Parse("", r)
}

// ParseString parses outline content from a string.
func ParseString(input string) (*Outline, error) {
	return outlineParser.ParseString("", input)
}
