package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/wafermap/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
	styleKey      = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + StyleValue.Render(value))
}

// =============================================================================
// Result Display
// =============================================================================

// printResult prints the stage summaries of a pipeline result.
func printResult(res *pipeline.Result) {
	status := iconFresh
	statusStyle := styleComputed
	if res.CacheInfo.ResultHit {
		status = iconCached
		statusStyle = styleCached
	}
	printSuccess("Run %s %s", StyleDim.Render(res.RunID), statusStyle.Render(status))

	if res.Routing != nil {
		printKeyValue("routing", fmt.Sprintf("%s/%d targets reached, %s switches (%s)",
			StyleNumber.Render(fmt.Sprint(res.Stats.Reached)),
			res.Stats.Targets,
			StyleNumber.Render(fmt.Sprint(res.Stats.Switches)),
			res.Routing.Exclusiveness))
		for _, t := range res.Routing.Targets {
			if !t.Reached {
				printWarning("target %s not reached", t.Target)
			}
		}
	}
	for _, side := range res.Drivers {
		printKeyValue("drivers "+side.Side.String(), fmt.Sprintf("%s/%d requested, %d available",
			StyleNumber.Render(fmt.Sprint(assignedDrivers(side))), side.Requested, side.Available))
		if len(side.Rejected) > 0 {
			lines := make([]string, len(side.Rejected))
			for i, l := range side.Rejected {
				lines[i] = l.String()
			}
			printWarning("rejected %s", strings.Join(lines, ", "))
		}
	}
	if len(res.Synapses) > 0 {
		printKeyValue("synapses", StyleNumber.Render(fmt.Sprint(res.Stats.SynapsesGranted))+" granted")
		for _, lr := range res.Synapses {
			for _, g := range lr.Grants {
				if len(g.Synapses) < g.Requested {
					printDetail("%s neuron %d: %d of %d synapses", lr.Line, int(g.Neuron), len(g.Synapses), g.Requested)
				}
			}
		}
	}
}

func assignedDrivers(side pipeline.SideResult) int {
	n := 0
	for _, l := range side.Lines {
		n += l.Drivers
	}
	return n
}
