package cmds

import (
	"sort"
	"strings"
	"unicode"
)

type Kind int

const (
	Client Kind = iota
	Storage
)

type Command struct {
	Name  string
	Kind  Kind
	Info  string
	Usage string
}

var Commands = []Command{
	{"connect", Client, "connect mvd server", "connect ADDRESS(tcp[4|6]://host:port or unix://filepath)"},
	{"get", Storage, "get value stored under key", "get KEY"},
	{"set", Storage, "set value stored under key", "set KEY VALUE"},
	{"delete", Storage, "delete key", "delete KEY"},
	{"range", Storage, "list entries in key order", "range [FROM [TO [LIMIT]]]"},
	{"len", Storage, "count entries visible to the innermost scope", "len"},
	{"version", Storage, "show committed storage version", "version"},
	{"stat", Storage, "show storage statistics", "stat"},
	{"block", Storage, "open a write block", "block"},
	{"commit", Storage, "commit the open block", "commit"},
	{"rollback", Storage, "roll back the open block", "rollback"},
	{"begin", Storage, "begin a transaction inside the open block", "begin"},
	{"apply", Storage, "keep the open transaction's writes", "apply"},
	{"discard", Storage, "undo the open transaction's writes", "discard"},
	{"revert", Storage, "revert the last committed block", "revert"},
	{"dump", Storage, "dump the storage as JSON", "dump [FILENAME]"},
	{"restore", Storage, "restore the storage from a JSON dump", "restore FILENAME"},
}

type byName []Command

func (a byName) Len() int           { return len(a) }
func (a byName) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byName) Less(i, j int) bool { return a[i].Name < a[j].Name }

func init() {
	sort.Sort(byName(Commands))
}

func Find(name string) *Command {
	name = strings.ToLower(name)
	for i, cmd := range Commands {
		if cmd.Name == name {
			return &Commands[i]
		}
	}
	return nil
}

func Complete(name string) (suggests []string) {
	name = strings.ToLower(name)
	for _, cmd := range Commands {
		if strings.HasPrefix(cmd.Name, name) {
			suggests = append(suggests, cmd.Name)
		}
	}
	return
}

// SplitArgs splits s on spaces into at most n fields; the last field
// keeps its embedded spaces. n <= 0 means no bound.
func SplitArgs(s string, n int) (args []string) {
	s = strings.TrimFunc(s, unicode.IsSpace)
	for s != "" {
		i := strings.IndexFunc(s, unicode.IsSpace)
		if i == -1 || n == 1 {
			args = append(args, s)
			break
		}
		n--
		args = append(args, s[:i])
		s = strings.TrimFunc(s[i:], unicode.IsSpace)
	}
	return args
}
