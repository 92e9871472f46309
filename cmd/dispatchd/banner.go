// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/common-nighthawk/go-figure"
	"golang.org/x/term"

	"github.com/typepoint/core/metrics"
	"github.com/typepoint/core/router"
	"github.com/typepoint/core/tracing"
)

const bannerTableWidth = 80

var (
	categoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(14).PaddingLeft(2)
	valueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

	kindStyles = map[router.Kind]lipgloss.Style{
		router.KindMiddleware: lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		router.KindEndpoint:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
	}
)

// printBanner writes the service name as ASCII art followed by the
// listener, observability and handler summary. Colors are stripped in
// production and downsampled to what the terminal supports elsewhere.
func printBanner(w io.Writer, cfg *Config, r *router.Router, rec *metrics.Recorder, tr *tracing.Tracer) {
	cpw := colorprofile.NewWriter(w, os.Environ())
	if cfg.Service.Environment == "production" {
		cpw.Profile = colorprofile.NoTTY
	}

	var out strings.Builder
	gradient := []string{"12", "14", "10", "11"}
	for _, line := range figure.NewFigure(cfg.Service.Name, "", false).Slicify() {
		if strings.TrimSpace(line) != "" {
			for i, ch := range line {
				style := lipgloss.NewStyle().Foreground(lipgloss.Color(gradient[i%len(gradient)])).Bold(true)
				out.WriteString(style.Render(string(ch)))
			}
		}
		out.WriteString("\n")
	}

	row := func(label, value string) {
		out.WriteString(labelStyle.Render(label) + "  " + value + "\n")
	}

	out.WriteString("\n" + categoryStyle.Render("Service") + "\n")
	row("Version:", valueStyle.Render(cfg.Service.Version))
	row("Environment:", valueStyle.Render(cfg.Service.Environment))
	row("Address:", valueStyle.Render(displayAddr(cfg.Server.Addr))+"  "+dimStyle.Render("["+cfg.Server.Transport+"]"))

	out.WriteString("\n" + categoryStyle.Render("Observability") + "\n")
	metricsValue := dimStyle.Render("[" + string(rec.Provider()) + "]")
	if cfg.Admin.Enabled && rec.Provider() == metrics.PrometheusProvider {
		metricsValue = valueStyle.Render(displayAddr(cfg.Admin.Addr)+"/metrics") + "  " + metricsValue
	}
	row("Metrics:", metricsValue)
	row("Tracing:", dimStyle.Render("["+string(tr.Provider())+"]"))
	row("Errors:", dimStyle.Render("["+cfg.Errors.Format+"]"))

	_, _ = fmt.Fprintln(cpw)
	_, _ = fmt.Fprint(cpw, out.String())
	_, _ = fmt.Fprintln(cpw)
	renderHandlers(cpw, r, terminalWidth(w, bannerTableWidth))
	_, _ = fmt.Fprintln(cpw)
}

// renderHandlers prints every registered handler in dispatch order.
func renderHandlers(w io.Writer, r *router.Router, width int) {
	routes := r.Routes()
	if len(routes) == 0 {
		return
	}

	rows := make([][]string, 0, len(routes))
	for _, rt := range routes {
		kind := rt.Kind().String()
		if style, ok := kindStyles[rt.Kind()]; ok {
			kind = style.Render(kind)
		}
		rows = append(rows, []string{kind, rt.Method().String(), rt.Path(), rt.Name()})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				style = style.Bold(true).Foreground(lipgloss.Color("230"))
			}
			return style
		}).
		Headers("Kind", "Method", "Path", "Name").
		Rows(rows...).
		Width(max(60, width))

	_, _ = fmt.Fprintln(w, t.Render())
}

// terminalWidth caps width to the terminal w writes to, if any.
func terminalWidth(w io.Writer, width int) int {
	if f, ok := w.(*os.File); ok {
		if tw, _, err := term.GetSize(int(f.Fd())); err == nil && tw > 0 {
			return min(width, tw)
		}
	}
	return width
}

// displayAddr turns ":8080" into "http://0.0.0.0:8080".
func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "0.0.0.0" + addr
	}
	return "http://" + addr
}
