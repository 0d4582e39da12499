package report

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"time"

	"github.com/devicelab-dev/actionrunner/pkg/core"
)

const htmlFile = "report.html"

// HTMLConfig contains configuration for HTML report generation.
type HTMLConfig struct {
	OutputPath string // Path to write the HTML file (default: <run dir>/report.html)
	Title      string // Report title (default: the profile name)
}

// GenerateHTML renders the report stored in runDir as a single HTML page
// and returns the path written.
func GenerateHTML(runDir string, cfg HTMLConfig) (string, error) {
	r, err := Read(runDir)
	if err != nil {
		return "", fmt.Errorf("read report: %w", err)
	}

	if cfg.Title == "" {
		cfg.Title = "Run report: " + r.Profile
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = filepath.Join(runDir, htmlFile)
	}

	html, err := renderHTML(buildHTMLData(r, cfg))
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	if err := atomicWrite(cfg.OutputPath, html); err != nil {
		return "", fmt.Errorf("write html: %w", err)
	}
	return cfg.OutputPath, nil
}

// HTMLData contains all data needed for the HTML template.
type HTMLData struct {
	Title       string
	GeneratedAt string
	Report      *core.RunReport
	StatusClass string
	Duration    string
	Actions     []ActionHTMLData
}

// ActionHTMLData contains one result formatted for HTML.
type ActionHTMLData struct {
	core.ActionResult
	Number      int
	StatusClass string
	DurationStr string
	DurationPct float64
	SnapshotURL string // Relative link, empty without a snapshot
	Halting     bool
}

func buildHTMLData(r *core.RunReport, cfg HTMLConfig) HTMLData {
	var maxDuration time.Duration
	for _, res := range r.Results {
		if res.Duration > maxDuration {
			maxDuration = res.Duration
		}
	}

	actions := make([]ActionHTMLData, len(r.Results))
	for i, res := range r.Results {
		a := ActionHTMLData{
			ActionResult: res,
			Number:       res.Index + 1,
			StatusClass:  actionClass(res.Status),
			DurationStr:  FormatDuration(res.Duration),
			Halting:      r.Status == core.RunHalted && res.Index == r.HaltedAt,
		}
		if maxDuration > 0 {
			a.DurationPct = float64(res.Duration) / float64(maxDuration) * 100
		}
		if res.Snapshot != "" {
			a.SnapshotURL = filepath.ToSlash(SnapshotPath(res.Index))
		}
		actions[i] = a
	}

	runClass := "passed"
	switch r.Status {
	case core.RunHalted:
		runClass = "failed"
	case core.RunCancelled:
		runClass = "skipped"
	}

	return HTMLData{
		Title:       cfg.Title,
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
		Report:      r,
		StatusClass: runClass,
		Duration:    FormatDuration(r.Duration),
		Actions:     actions,
	}
}

func actionClass(s core.ActionStatus) string {
	switch s {
	case core.StatusSuccess:
		return "passed"
	case core.StatusCancelled:
		return "skipped"
	default:
		return "failed"
	}
}

func renderHTML(data HTMLData) ([]byte, error) {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        :root {
            --bg-primary: #ffffff;
            --bg-secondary: #f9fafb;
            --text-primary: #000000;
            --text-secondary: rgb(75, 85, 99);
            --border-color: #e5e7eb;
            --passed: #22c55e;
            --passed-bg: rgba(34, 197, 94, 0.1);
            --failed: #ef4444;
            --failed-bg: rgba(239, 68, 68, 0.08);
            --skipped: #eab308;
            --skipped-bg: rgba(234, 179, 8, 0.1);
            --accent: #06b6d4;
        }

        * { box-sizing: border-box; margin: 0; padding: 0; }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            line-height: 1.5;
        }

        .header {
            background: var(--bg-secondary);
            border-bottom: 1px solid var(--border-color);
            padding: 16px 24px;
        }

        .header-title-main { font-size: 16px; font-weight: 500; }
        .header-title-sub { font-size: 12px; color: var(--text-secondary); }

        .summary { display: flex; gap: 12px; margin-top: 12px; }

        .stat {
            border: 1px solid var(--border-color);
            border-radius: 6px;
            padding: 6px 12px;
            font-size: 13px;
        }

        .badge {
            display: inline-block;
            border-radius: 4px;
            padding: 1px 8px;
            font-size: 12px;
            font-weight: 500;
        }
        .badge.passed { color: var(--passed); background: var(--passed-bg); }
        .badge.failed { color: var(--failed); background: var(--failed-bg); }
        .badge.skipped { color: var(--skipped); background: var(--skipped-bg); }

        .error-banner {
            margin: 16px 24px 0;
            padding: 10px 14px;
            border-radius: 6px;
            color: var(--failed);
            background: var(--failed-bg);
            font-size: 13px;
        }

        table { width: calc(100% - 48px); margin: 16px 24px; border-collapse: collapse; font-size: 13px; }
        th, td { text-align: left; padding: 8px; border-bottom: 1px solid var(--border-color); vertical-align: top; }
        th { color: var(--text-secondary); font-weight: 500; }
        tr.halting { background: var(--failed-bg); }
        td.error { color: var(--failed); font-family: monospace; }
        a { color: var(--accent); text-decoration: none; }
        a:hover { text-decoration: underline; }

        .duration-bar { height: 4px; border-radius: 2px; background: var(--accent); margin-top: 4px; }
    </style>
</head>
<body>
    <div class="header">
        <div class="header-title-main">{{.Title}} <span class="badge {{.StatusClass}}">{{.Report.Status}}</span></div>
        <div class="header-title-sub">
            Run {{.Report.ID}} on {{.Report.Target}}{{with .Report.Platform}}{{if .DeviceName}} ({{.DeviceName}}, Android {{.OSVersion}}){{end}}{{end}}
            &middot; {{.Duration}} &middot; generated {{.GeneratedAt}}
        </div>
        <div class="summary">
            <div class="stat">Planned {{.Report.Planned}}</div>
            <div class="stat">Attempted {{.Report.Summary.Total}}</div>
            <div class="stat"><span class="badge passed">{{.Report.Summary.Succeeded}} succeeded</span></div>
            <div class="stat"><span class="badge failed">{{.Report.Summary.Failed}} failed</span></div>
            {{if not .Report.SessionReleased}}<div class="stat"><span class="badge failed">session not released</span></div>{{end}}
        </div>
    </div>

    {{if .Report.Error}}<div class="error-banner">{{.Report.Error}}</div>{{end}}

    <table>
        <thead>
            <tr><th>#</th><th>Action</th><th>Op</th><th>Status</th><th>Duration</th><th>Text</th><th>Error</th><th>Snapshot</th></tr>
        </thead>
        <tbody>
        {{range .Actions}}
            <tr class="{{if .Halting}}halting{{end}}">
                <td>{{.Number}}</td>
                <td>{{.Name}}{{if not .Required}} <span class="badge skipped">optional</span>{{end}}</td>
                <td>{{.Op}}</td>
                <td><span class="badge {{.StatusClass}}">{{.Status}}</span></td>
                <td>{{.DurationStr}}<div class="duration-bar" style="width: {{printf "%.0f" .DurationPct}}%"></div></td>
                <td>{{.Text}}{{if .Count}} ({{.Count}} matched){{end}}</td>
                <td class="error">{{.Error}}</td>
                <td>{{if .SnapshotURL}}<a href="{{.SnapshotURL}}">ui tree</a>{{end}}</td>
            </tr>
        {{end}}
        </tbody>
    </table>
</body>
</html>
`
