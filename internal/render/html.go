package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"regexp"
)

//go:embed templates/calendar.html.tmpl
var templateFS embed.FS

var calendarTmpl = template.Must(template.New("calendar.html.tmpl").Funcs(template.FuncMap{
	"eventStyle": eventStyle,
}).ParseFS(templateFS, "templates/calendar.html.tmpl"))

// Base geometry of the exported calendar at 100% size.
const (
	BaseWidthPx      = 800
	BaseCellHeightPx = 128
)

var (
	colorPattern = regexp.MustCompile(`^#(?:[0-9A-Fa-f]{3}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})$`)
	sizePattern  = regexp.MustCompile(`^\d{1,3}(?:\.\d{1,2})?(?:px|pt|em|rem|%)$`)
	fontPattern  = regexp.MustCompile(`^[\p{L}\p{N} ,'"_-]{1,200}$`)
)

// page is the template input. CSS values are validated before being
// marked as trusted.
type page struct {
	MonthView
	Font       template.CSS
	Width      template.CSS
	CellHeight template.CSS
	HeaderBG   template.CSS
	EventSize  template.CSS
	EventColor template.CSS
	MemoSize   template.CSS
	MemoColor  template.CSS
}

// HTML writes the standalone month page. Its root element is
// #calendar-container and carries data-ready="true" once written.
func HTML(w io.Writer, v MonthView) error {
	width, height := v.Size.Width, v.Size.Height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 100
	}

	p := page{
		MonthView:  v,
		Font:       fontCSS(v.Text.FontFamily, "sans-serif"),
		Width:      template.CSS(fmt.Sprintf("%dpx", BaseWidthPx*width/100)),
		CellHeight: template.CSS(fmt.Sprintf("%dpx", BaseCellHeightPx*height/100)),
		HeaderBG:   colorCSS(v.Header, "#1f2937"),
		EventSize:  sizeCSS(v.Text.EventFontSize, "12px"),
		EventColor: colorCSS(v.Text.EventTextColor, "#374151"),
		MemoSize:   sizeCSS(v.Text.MemoFontSize, "14px"),
		MemoColor:  colorCSS(v.Text.MemoTextColor, "#374151"),
	}
	return calendarTmpl.Execute(w, p)
}

func colorCSS(s, fallback string) template.CSS {
	if colorPattern.MatchString(s) {
		return template.CSS(s)
	}
	return template.CSS(fallback)
}

func sizeCSS(s, fallback string) template.CSS {
	if sizePattern.MatchString(s) {
		return template.CSS(s)
	}
	return template.CSS(fallback)
}

func fontCSS(s, fallback string) template.CSS {
	if fontPattern.MatchString(s) {
		return template.CSS(s)
	}
	return template.CSS(fallback)
}

// eventStyle tints an event chip with its type color.
func eventStyle(color string) template.CSS {
	if len(color) != 7 || !colorPattern.MatchString(color) {
		color = "#6b7280"
	}
	return template.CSS(fmt.Sprintf("background-color: %s20; border-left: 3px solid %s;", color, color))
}
