package lang

import (
	"github.com/smacker/go-tree-sitter/python"
)

func init() {
	register(newBinding("python", python.GetLanguage()))
}
