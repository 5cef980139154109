package gan

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// Reporter prints one progress line per step and prefixed status lines.
//
//	[0/25][12/391] loss_D: 1.3542 real_adv: 0.6811 fake_adv: 0.6731 loss_G: 0.7154 adv: 0.7154
//
// Progress lines are meant to be scraped; they carry the epoch, the step
// and the scalar value of every named term of both phases.
type Reporter struct {
	out    io.Writer
	logger *log.Logger
	epochs int
	steps  int
}

// NewReporter writes progress for a run of epochs × steps to out.
func NewReporter(out io.Writer, epochs, steps int) *Reporter {
	return &Reporter{out: out, logger: log.New(out, "", log.LstdFlags), epochs: epochs, steps: steps}
}

// Step prints the progress line of a step. Phases that did not run are
// left out.
func (r *Reporter) Step(epoch, step int, res StepResult) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d/%d][%d/%d]", epoch, r.epochs, step, r.steps)
	writePhase(&sb, "loss_D", res.D)
	writePhase(&sb, "loss_G", res.G)
	fmt.Fprintln(r.out, sb.String())
}

func writePhase(sb *strings.Builder, name string, terms *Terms) {
	if terms == nil || terms.Len() == 0 {
		return
	}
	fmt.Fprintf(sb, " %s: %.4f", name, terms.Value())
	for _, v := range terms.Values() {
		fmt.Fprintf(sb, " %s: %.4f", v.Name, v.Value)
	}
}

// Infof prints a status line.
func (r *Reporter) Infof(format string, args ...any) {
	r.logger.Printf("[*] "+format, args...)
}

// Warnf prints a warning. Skipped steps and failed side effects are
// reported here.
func (r *Reporter) Warnf(format string, args ...any) {
	r.logger.Printf("[!] "+format, args...)
}
