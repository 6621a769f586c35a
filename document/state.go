package document

import "fmt"

// State 是文档渲染器的阶段，只能严格向前推进。
type State int

const (
	Init State = iota
	TextureBuilt
	OverlaysApplied
	TextRendered
	Saved
)

func (s State) String() string {
	switch s {
	case Init:
		return "Init"
	case TextureBuilt:
		return "TextureBuilt"
	case OverlaysApplied:
		return "OverlaysApplied"
	case TextRendered:
		return "TextRendered"
	case Saved:
		return "Saved"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type machine struct {
	state   State
	visited []State
}

func newMachine() *machine {
	return &machine{state: Init, visited: []State{Init}}
}

// advance 只允许进入紧随其后的状态。
func (m *machine) advance(next State) error {
	if next != m.state+1 {
		return fmt.Errorf("非法状态转换: %s -> %s", m.state, next)
	}
	m.state = next
	m.visited = append(m.visited, next)
	return nil
}
