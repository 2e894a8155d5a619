package http

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"
	"strconv"

	"github.com/couchcryptid/climate-explorer/internal/presenter"
)

//go:embed page.html.tmpl
var pageSource string

var pageTemplate = template.Must(template.New("page").Parse(pageSource))

const (
	pageTitle    = "Global Temperatures"
	pageSubtitle = "Average temperature against measurement uncertainty, one point per country, coloured by continent."
)

type pageData struct {
	Title    string
	Subtitle string
	Label    string
	Notice   string
	Chart    template.HTML
	Slider   presenter.Slider
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	year := s.defaultYear
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			s.metrics.YearRequests.WithLabelValues("invalid").Inc()
			writeError(w, http.StatusBadRequest, "year must be an integer: "+strconv.Quote(raw))
			return
		}
		year = y
	}

	ds := s.dataset(w)
	if ds == nil {
		return
	}

	v := presenter.Present(year, ds)
	svg, err := presenter.RenderSVG(v)
	if err != nil {
		s.logger.Error("render chart failed", "year", year, "error", err)
		writeError(w, http.StatusInternalServerError, "render chart failed")
		return
	}
	s.metrics.YearRequests.WithLabelValues(outcome(year, ds, v)).Inc()

	var buf bytes.Buffer
	err = pageTemplate.Execute(&buf, pageData{
		Title:    pageTitle,
		Subtitle: pageSubtitle,
		Label:    v.Label,
		Notice:   v.Notice,
		Chart:    template.HTML(svg), //nolint:gosec // rendered by the chart package, not user input
		Slider:   presenter.NewSlider(ds, year),
	})
	if err != nil {
		s.logger.Error("execute page template failed", "error", err)
		writeError(w, http.StatusInternalServerError, "render page failed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client went away
}
