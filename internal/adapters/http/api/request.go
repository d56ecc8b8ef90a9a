package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/overtime/internal/domain/calendar"
	"github.com/okian/overtime/internal/domain/overtime"
)

// request holds the query parameters shared by the overtime endpoints:
//
//	mode=roster|source
//	window=trailing|ytd|range   (inferred from days/from/to when omitted)
//	days=N                      (trailing)
//	from=YYYY-MM-DD&to=YYYY-MM-DD (range)
type request struct {
	Mode   overtime.Mode
	Window calendar.Window
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

func parseRequest(r *http.Request, deps Dependencies) (request, error) {
	q := r.URL.Query()
	req := request{Mode: deps.DefaultMode(), Window: deps.DefaultWindow()}

	if m := q.Get("mode"); m != "" {
		mode, err := overtime.ParseMode(m)
		if err != nil {
			return req, badRequest("mode must be roster or source")
		}
		req.Mode = mode
	}

	kind := strings.ToLower(q.Get("window"))
	if kind == "" {
		switch {
		case q.Get("from") != "" || q.Get("to") != "":
			kind = "range"
		case q.Get("days") != "":
			kind = "trailing"
		}
	}

	switch kind {
	case "":
	case "trailing":
		days := req.Window.Days
		if s := q.Get("days"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				return req, badRequest("days must be a positive integer")
			}
			days = n
		}
		if days < 1 {
			return req, badRequest("days is required for a trailing window")
		}
		req.Window = calendar.Trailing(days)
	case "ytd":
		req.Window = calendar.YearToDate()
	case "range":
		from, err := calendar.ParseDate(q.Get("from"))
		if err != nil {
			return req, badRequest("from must be YYYY-MM-DD")
		}
		to, err := calendar.ParseDate(q.Get("to"))
		if err != nil {
			return req, badRequest("to must be YYYY-MM-DD")
		}
		req.Window = calendar.Explicit(from, to)
	default:
		return req, badRequest("window must be trailing, ytd or range")
	}
	return req, nil
}
