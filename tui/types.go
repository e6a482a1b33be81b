package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/jrwynneiii/wsprdac/transmit"
	"github.com/rivo/tview"
)

// Message is what is being sent, shown in the header of the status table.
type Message struct {
	Callsign string
	Locator  string
	Power    int
}

type StatusTableData struct {
	tview.TableContentReadOnly
	msg      Message
	progress transmit.Progress
	freqs    []float64
}

var statusRows = []string{
	"Call sign:",
	"Locator:",
	"Power:",
	"State:",
	"Symbol:",
	"Tone:",
	"Sample rate:",
	"Device errors:",
}

func (s *StatusTableData) GetRowCount() int {
	return len(statusRows)
}

func (s *StatusTableData) GetColumnCount() int {
	return 2
}

func (s *StatusTableData) GetCell(row, column int) *tview.TableCell {
	if row < 0 || row >= len(statusRows) {
		return nil
	}
	if column == 0 {
		return tview.NewTableCell(statusRows[row]).SetTextColor(tcell.ColorLightSkyBlue)
	}

	p := s.progress
	switch row {
	case 0:
		return tview.NewTableCell(s.msg.Callsign)
	case 1:
		return tview.NewTableCell(s.msg.Locator)
	case 2:
		return tview.NewTableCell(fmt.Sprintf("%d dBm", s.msg.Power))
	case 3:
		color := tcell.ColorGreen
		if p.State == transmit.Closed || p.State == transmit.Draining {
			color = tcell.ColorRed
		}
		return tview.NewTableCell(p.State.String()).SetTextColor(color)
	case 4:
		return tview.NewTableCell(fmt.Sprintf("%d / %d", min(p.Position+1, p.Total), p.Total))
	case 5:
		if p.Tone < len(s.freqs) {
			return tview.NewTableCell(fmt.Sprintf("%d (%.3f Hz)", p.Tone, s.freqs[p.Tone]))
		}
		return tview.NewTableCell(fmt.Sprintf("%d", p.Tone))
	case 6:
		return tview.NewTableCell(fmt.Sprintf("%.0f S/s", p.SampleRate))
	case 7:
		color := tcell.ColorGreen
		if p.DeviceErrors > 0 {
			color = tcell.ColorRed
		}
		return tview.NewTableCell(fmt.Sprintf("%d", p.DeviceErrors)).SetTextColor(color)
	}
	return tview.NewTableCell("ERROR")
}
