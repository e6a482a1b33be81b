package tui

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"github.com/jrwynneiii/wsprdac/config"
	"github.com/jrwynneiii/wsprdac/tones"
	"github.com/jrwynneiii/wsprdac/transmit"
	"github.com/navidys/tvxwidgets"
	"github.com/rivo/tview"
)

var LogOut *tview.TextView

// StartUI shows the transmission status until done is closed or the operator quits
// with q or Ctrl-C, in which case quit is called before returning. Output of both the
// default logger and logger goes to the log pane while the UI runs.
func StartUI(ctrl *transmit.Controller, logger *log.Logger, msg Message, symbols []byte, bank *tones.Bank, tuiConf config.TuiConf, done <-chan struct{}, quit func()) {
	runUI(tview.NewApplication(), ctrl, logger, msg, symbols, bank, tuiConf, done, quit)
}

func runUI(app *tview.Application, ctrl *transmit.Controller, logger *log.Logger, msg Message, symbols []byte, bank *tones.Bank, tuiConf config.TuiConf, done <-chan struct{}, quit func()) {
	LogOut = tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true)

	freqs := make([]float64, bank.Len())
	for k := range freqs {
		freqs[k] = bank.Frequency(k)
	}
	statusData := &StatusTableData{msg: msg, freqs: freqs}
	statusTable := tview.NewTable().SetContent(statusData)
	statusTable.SetSelectable(false, false).SetBorder(true).SetTitle("Transmission")

	progressGauge := tvxwidgets.NewPercentageModeGauge()
	progressGauge.SetMaxValue(len(symbols))
	progressGauge.SetBorder(true)
	progressGauge.SetTitle("Progress")

	symbolPlot := tvxwidgets.NewPlot()
	symbolPlot.SetLineColor([]tcell.Color{tcell.ColorLightSkyBlue})
	symbolPlot.SetMarker(tvxwidgets.PlotMarkerBraille)
	symbolPlot.SetBorder(true)
	symbolPlot.SetTitle("Symbols")
	plotData := make([]float64, len(symbols))
	for i, s := range symbols {
		plotData[i] = float64(s)
	}
	symbolPlot.SetData([][]float64{plotData})

	LogOut.SetChangedFunc(func() {
		LogOut.ScrollToEnd()
		app.Draw()
	})
	LogOut.SetBorder(true).SetTitle("Log Output")
	if tuiConf.EnableLogOutput {
		log.SetOutput(LogOut)
		logger.SetOutput(LogOut)
	}

	leftCol := tview.NewFlex().SetDirection(tview.FlexRow)
	leftCol.AddItem(statusTable, 0, 3, false)
	leftCol.AddItem(progressGauge, 3, 0, false)

	rightCol := tview.NewFlex().SetDirection(tview.FlexRow)
	rightCol.AddItem(symbolPlot, 0, 2, false)
	if tuiConf.EnableLogOutput {
		rightCol.AddItem(LogOut, 0, 3, false)
	}

	page := tview.NewFlex().SetDirection(tview.FlexColumn)
	page.AddItem(leftCol, 0, 2, false)
	page.AddItem(rightCol, 0, 5, false)

	quitting := false
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC || event.Rune() == 'q' {
			quitting = true
			app.Stop()
			return nil
		}
		return event
	})

	refresh := time.Duration(tuiConf.RefreshMs) * time.Millisecond
	if refresh <= 0 {
		refresh = 250 * time.Millisecond
	}
	go func() {
		ticker := time.NewTicker(refresh)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				// Queued so it also takes effect when done closes before Run starts.
				app.QueueUpdate(app.Stop)
				return
			case <-ticker.C:
			}

			p := ctrl.Progress()
			app.QueueUpdateDraw(func() {
				statusData.progress = p
				progressGauge.SetValue(p.Sent)
			})
		}
	}()

	if err := app.SetRoot(page, true).Run(); err != nil {
		log.Errorf("Could not start UI: %v", err)
	}
	log.SetOutput(os.Stderr)
	logger.SetOutput(os.Stderr)
	if quitting {
		quit()
	}
}
