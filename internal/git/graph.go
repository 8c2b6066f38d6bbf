package git

import "strings"

// graphBuilder draws one ASCII lane line per commit, fed in walk order.
type graphBuilder struct {
	columns []string
}

func newGraphBuilder() *graphBuilder {
	return &graphBuilder{}
}

// GraphLines returns the lane drawing for each commit of a walk.
func GraphLines(commits []Commit) []string {
	builder := newGraphBuilder()
	lines := make([]string, len(commits))
	for i, c := range commits {
		lines[i] = builder.Line(c.ID, c.Parents)
	}
	return lines
}

func (g *graphBuilder) Line(id string, parents []string) string {
	idx := g.columnIndex(id)
	if idx == -1 {
		g.columns = append([]string{id}, g.columns...)
		idx = 0
	}
	var b strings.Builder
	for i := range g.columns {
		if i == idx {
			b.WriteString("*")
		} else {
			b.WriteString("|")
		}
		if i != len(g.columns)-1 {
			b.WriteString(" ")
		}
	}
	g.advance(idx, parents)
	return b.String()
}

func (g *graphBuilder) columnIndex(id string) int {
	for i, h := range g.columns {
		if h == id {
			return i
		}
	}
	return -1
}

func (g *graphBuilder) advance(idx int, parents []string) {
	if len(parents) == 0 {
		g.columns = append(g.columns[:idx], g.columns[idx+1:]...)
		return
	}
	primary := parents[0]
	// A lane already waiting for the first parent absorbs this one.
	if other := g.columnIndex(primary); other != -1 && other != idx {
		g.columns = append(g.columns[:idx], g.columns[idx+1:]...)
		if other > idx {
			other--
		}
		idx = other
	} else {
		g.columns[idx] = primary
	}
	for i := 1; i < len(parents); i++ {
		parent := parents[i]
		g.removeColumn(parent)
		pos := min(idx+i, len(g.columns))
		g.columns = append(g.columns[:pos], append([]string{parent}, g.columns[pos:]...)...)
	}
}

func (g *graphBuilder) removeColumn(id string) {
	for i, h := range g.columns {
		if h == id {
			g.columns = append(g.columns[:i], g.columns[i+1:]...)
			return
		}
	}
}
