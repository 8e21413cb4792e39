package ui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
	"github.com/mattn/go-runewidth"

	"cortexchat/assistant"
	"cortexchat/citation"
	"cortexchat/config"
	appmodel "cortexchat/model"
)

var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
	urlRegex        = regexp.MustCompile(`(https?://[^\s]+)`)
)

const (
	codeBar     = "┃"
	frameRule   = "━"
	ansiGray    = "\x1b[90m"
	ansiRed     = "\x1b[31m"
	ansiGreenB  = "\x1b[32;1m"
	ansiReset   = "\x1b[0m"
	maxCellRune = 40
)

func (a *AppView) updateViewportContent(gotoBottom bool) {
	session := a.dataModel.Session
	if len(session.Messages) == 0 {
		a.viewport.SetContent(DimStyle.Render("No messages yet. Ask about policies, documents or sales data."))
		return
	}

	width := a.contentWidth()
	debug := session.Settings.Debug

	var content strings.Builder
	for i, msg := range session.Messages {
		highlightPrefix := ""
		if i == a.highlightedMessageIdx && a.highlightFlashCount%2 == 1 {
			highlightPrefix = HighlightStyle.Render(">>> ")
		}
		content.WriteString(renderMessage(msg, highlightPrefix, width, debug))
	}

	if session.Busy() {
		content.WriteString(fmt.Sprintf("%s %s\n", a.spinner.View(), DimStyle.Render("Waiting for the agent...")))
	}

	a.viewport.SetContent(content.String())
	if gotoBottom {
		a.viewport.GotoBottom()
	}
}

// renderMessage draws one transcript entry with everything attached to it.
func renderMessage(msg appmodel.Message, highlightPrefix string, width int, debug bool) string {
	timestamp := DimStyle.Render(msg.Timestamp.Format("[15:04]"))

	if msg.Role == appmodel.RoleUser {
		return formatUserMessage(highlightPrefix, timestamp, UserStyle.Render("You"), msg.Content)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s%s %s\n", highlightPrefix, timestamp, AssistantStyle.Render("Assistant")))

	if msg.IsError {
		b.WriteString(ErrorStyle.Render(wordWrap("Error: "+msg.Content, width)))
		b.WriteString("\n\n")
		return b.String()
	}

	body := msg.Rendered
	if body == "" {
		body = wordWrap(msg.Content, width)
	}
	b.WriteString(body)
	b.WriteString("\n")

	for _, note := range msg.Notes {
		b.WriteString(ErrorStyle.Render("! "+note) + "\n")
	}

	if citations := renderCitations(msg, width); citations != "" {
		b.WriteString("\n" + citations + "\n")
	}

	if msg.SQL != "" {
		b.WriteString(frameBlock("[sql]", msg.SQL, width))
	}

	if msg.Report != nil {
		b.WriteString(renderReport(msg.Report, width))
	} else if msg.ReportErr != nil {
		b.WriteString(ErrorStyle.Render("Report failed: "+msg.ReportErr.Error()) + "\n")
	}

	if debug {
		b.WriteString(renderDebug(msg))
	}

	b.WriteString("\n")
	return b.String()
}

func formatUserMessage(highlightPrefix, timestamp, role, content string) string {
	bar := ansiGreenB + codeBar + ansiReset

	var result strings.Builder
	result.WriteString(fmt.Sprintf("%s%s %s %s\n", highlightPrefix, bar, timestamp, role))
	for _, line := range strings.Split(content, "\n") {
		result.WriteString(fmt.Sprintf("%s %s\n", bar, line))
	}
	result.WriteString("\n")
	return result.String()
}

// renderCitations shows resolved citations as panels. Messages restored from
// disk only have the raw citations and get a plain list.
func renderCitations(msg appmodel.Message, width int) string {
	if len(msg.Resolved) > 0 {
		panels := make([]string, 0, len(msg.Resolved))
		for _, r := range msg.Resolved {
			panels = append(panels, renderCitationPanel(r, width))
		}
		return strings.Join(panels, "\n")
	}

	if len(msg.Citations) == 0 {
		return ""
	}
	lines := []string{DimStyle.Render("Sources:")}
	for _, c := range msg.Citations {
		lines = append(lines, DimStyle.Render(fmt.Sprintf("  [%s] %s", c.SourceID, c.DocTitle)))
	}
	return strings.Join(lines, "\n")
}

func renderCitationPanel(r citation.Resolved, width int) string {
	inner := width - 6
	if inner < 10 {
		inner = 10
	}

	header := PanelTitleStyle.Render(r.Label()) + " " + DimStyle.Render(truncateWidth(r.Citation.DocTitle, inner-len(r.Label())-1))

	var body string
	switch {
	case r.Err != nil:
		body = ErrorStyle.Render("Lookup failed: " + r.Err.Error())
	case r.Missing && r.Kind == citation.KindImage:
		body = DimStyle.Render(citation.NoURL)
	case r.Missing:
		body = DimStyle.Render(citation.NoText)
	default:
		body = wordWrap(r.Body, inner)
	}

	return PanelStyle.Width(inner + 2).Render(header + "\n" + body)
}

// frameBlock draws text between two rules with label centered in the top one.
func frameBlock(label, text string, width int) string {
	lineLen := width - 4
	if lineLen < len(label)+2 {
		lineLen = len(label) + 2
	}
	leftLen := (lineLen - len(label)) / 2
	rightLen := lineLen - len(label) - leftLen

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(ansiGray + strings.Repeat(frameRule, leftLen) + ansiReset + label + ansiGray + strings.Repeat(frameRule, rightLen) + ansiReset + "\n")
	b.WriteString(strings.TrimRight(text, "\n") + "\n")
	b.WriteString(ansiGray + strings.Repeat(frameRule, lineLen) + ansiReset + "\n")
	return b.String()
}

func renderReport(r *assistant.Report, width int) string {
	var b strings.Builder
	b.WriteString("\n" + TitleStyle.Render(r.Title) + "\n")
	if len(r.Columns) == 0 {
		b.WriteString(DimStyle.Render("The query returned no columns.") + "\n")
		return b.String()
	}

	t := newReportTable(r, width)
	b.WriteString(t.View() + "\n")
	b.WriteString(DimStyle.Render(fmt.Sprintf("%d rows", len(r.Rows))) + "\n")
	return b.String()
}

func newReportTable(r *assistant.Report, width int) table.Model {
	colWidth := (width - 2*len(r.Columns)) / len(r.Columns)
	if colWidth > maxCellRune {
		colWidth = maxCellRune
	}
	if colWidth < 6 {
		colWidth = 6
	}

	columns := make([]table.Column, len(r.Columns))
	for i, c := range r.Columns {
		columns[i] = table.Column{Title: c, Width: colWidth}
	}
	rows := make([]table.Row, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = table.Row(row)
	}

	// header plus its border
	height := len(rows) + 2
	if height > 16 {
		height = 16
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		BorderBottom(true).
		Bold(true)
	// the transcript table is not interactive
	styles.Selected = lipgloss.NewStyle()

	return table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithStyles(styles),
		table.WithHeight(height),
	)
}

func renderDebug(msg appmodel.Message) string {
	var lines []string
	for _, w := range msg.Warnings {
		lines = append(lines, WarningStyle.Render("warning: "+w))
	}
	for _, t := range msg.Trace {
		line := fmt.Sprintf("  %s %s", t.Event, t.Kind)
		if t.Tool != "" {
			line += " (" + t.Tool + ")"
		}
		lines = append(lines, DimStyle.Render(line))
	}

	tools := "none"
	if len(msg.ToolsUsed) > 0 {
		tools = strings.Join(msg.ToolsUsed, ", ")
	}
	lines = append(lines, DimStyle.Render(fmt.Sprintf("debug: %d call(s), %d event(s), tools: %s", msg.Calls, msg.Events, tools)))
	return "\n" + strings.Join(lines, "\n") + "\n"
}

func postProcessMarkdown(rendered string, width int) string {
	rendered = fixInlineCode(rendered)
	rendered = fixMarkdownLinks(rendered)
	return frameCodeBlocks(rendered, width)
}

// preprocessLinks turns [text](url) into the bare url.
func preprocessLinks(content string) string {
	return mdLinkRegex.ReplaceAllString(content, "$2")
}

// fixInlineCode recolors inline code from blue background to red text.
func fixInlineCode(s string) string {
	return inlineCodeRegex.ReplaceAllString(s, ansiRed+"$1"+ansiReset)
}

func fixMarkdownLinks(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if !strings.Contains(line, codeBar) {
			lines[i] = urlRegex.ReplaceAllString(line, ansiRed+"$1"+ansiReset)
		}
	}
	return strings.Join(lines, "\n")
}

// frameCodeBlocks replaces the renderer's bar-prefixed code lines with a
// framed block labelled [code].
func frameCodeBlocks(s string, width int) string {
	var (
		result      []string
		block       []string
		inCodeBlock bool
	)

	flush := func() {
		framed := strings.TrimRight(frameBlock("[code]", strings.Join(block, "\n"), width), "\n")
		result = append(result, strings.Split(framed, "\n")...)
		result = append(result, "")
		block = nil
		inCodeBlock = false
	}

	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(line, codeBar) {
			inCodeBlock = true
			block = append(block, stripCodeBlockPrefix(line))
			continue
		}
		if inCodeBlock {
			flush()
		}
		result = append(result, line)
	}
	if inCodeBlock {
		flush()
	}
	return strings.Join(result, "\n")
}

func stripCodeBlockPrefix(line string) string {
	idx := strings.Index(line, codeBar)
	if idx < 0 {
		return line
	}
	return strings.TrimPrefix(line[idx+len(codeBar):], " ")
}

// renderMarkdown renders content for a terminal of the given width.
func renderMarkdown(content string, width int) string {
	content = preprocessLinks(content)

	// autolink off keeps URLs plain so the terminal can detect them
	p := parser.NewWithExtensions(markdown.Extensions() &^ parser.Autolink)
	r := markdown.NewRenderer(width-4, 0)
	rendered := gomarkdown.Render(p.Parse([]byte(content)), r)

	return postProcessMarkdown(string(rendered), width)
}

func (a AppView) renderMarkdownAsync(messageIndex int, content string) tea.Cmd {
	width := a.contentWidth()
	return func() tea.Msg {
		start := time.Now()
		rendered := renderMarkdown(content, width)
		config.Log.Debug().
			Int("message", messageIndex).
			Int("chars", len(content)).
			Dur("elapsed", time.Since(start)).
			Msg("markdown rendered")
		return markdownRenderedMsg{MessageIndex: messageIndex, Rendered: rendered}
	}
}

// renderAllMarkdown re-renders every assistant message, e.g. after a resize
// or a session load.
func (a AppView) renderAllMarkdown() tea.Cmd {
	var cmds []tea.Cmd
	for i, msg := range a.dataModel.Session.Messages {
		if msg.Role == appmodel.RoleAssistant && !msg.IsError && msg.Content != "" {
			cmds = append(cmds, a.renderMarkdownAsync(i, msg.Content))
		}
	}
	return tea.Batch(cmds...)
}

func (a AppView) contentWidth() int {
	w := a.width
	if a.showSidebar {
		w -= sidebarWidth + 2
	}
	if w < 20 {
		w = 20
	}
	return w
}

func truncateWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "...")
}
