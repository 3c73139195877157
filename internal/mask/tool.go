package mask

import (
	"fmt"
	"strings"
)

// Tool selects what a brush application writes. Paint writes the selected
// label. Erase writes background, but only into voxels whose current value
// equals the selected label: erasing with Liver selected never removes
// Spleen voxels even when the footprint overlaps them.
type Tool int

const (
	ToolPaint Tool = iota
	ToolErase
)

func (t Tool) String() string {
	switch t {
	case ToolPaint:
		return "PAINT"
	case ToolErase:
		return "ERASE"
	default:
		return fmt.Sprintf("Tool(%d)", int(t))
	}
}

func ParseTool(s string) (Tool, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PAINT", "DRAW":
		return ToolPaint, nil
	case "ERASE":
		return ToolErase, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTool, s)
}
