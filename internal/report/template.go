package report

// ReportTemplate is the HTML template for the forecast report.
const ReportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root { --text: #1a1a2e; --muted: #6b7280; --border: #e5e7eb; --accent: #2563eb; --green: #16a34a; --orange: #ea580c; }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; color: var(--text); line-height: 1.6; max-width: 900px; margin: 0 auto; padding: 20px; }
  h1 { font-size: 1.5rem; color: var(--accent); border-bottom: 3px solid var(--accent); padding-bottom: 8px; margin-bottom: 4px; }
  h2 { font-size: 1.1rem; margin: 24px 0 8px; }
  .muted { color: var(--muted); font-size: 0.85rem; }
  .tables { display: flex; gap: 32px; flex-wrap: wrap; }
  table { border-collapse: collapse; min-width: 240px; }
  th, td { border: 1px solid var(--border); padding: 4px 12px; text-align: left; }
  td.num { text-align: right; font-variant-numeric: tabular-nums; }
  .verdict { margin-top: 24px; padding: 12px 16px; border-left: 4px solid var(--orange); background: #fff7ed; }
  .verdict.speculate { border-color: var(--green); background: #f0fdf4; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="muted">Generated {{.Generated}}</p>

<h2>Chart</h2>
{{.Chart}}

<div class="tables">
{{if .History}}
<div>
<h2>Recent prices</h2>
<table>
<tr><th>Week</th><th>Price</th></tr>
{{range .History}}<tr><td>{{.Week}}</td><td class="num">{{.Price}}</td></tr>
{{end}}</table>
</div>
{{end}}
<div>
<h2>Forecast</h2>
<table>
<tr><th>Week</th><th>Price</th></tr>
{{range .Forecast}}<tr><td>{{.Week}}</td><td class="num">{{.Price}}</td></tr>
{{end}}</table>
</div>
</div>

<p class="verdict {{.Verdict}}">{{.Advice}}</p>
</body>
</html>
`
