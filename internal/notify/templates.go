package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"parkease/internal/domain"
)

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("₹%.2f", v) },
	"hours": func(v float64) string { return fmt.Sprintf("%.1f h", v) },
}

var reminderTmpl = template.Must(template.New("reminder").Funcs(funcs).Parse(`<html>
<body style="font-family: Arial, sans-serif;">
  <h2>Hello {{.FullName}},</h2>
  <p>You have not booked a parking spot today. Spots are still open at:</p>
  <table border="1" cellpadding="6" cellspacing="0">
    <tr><th>Parking lot</th><th>Available</th><th>Total</th></tr>
    {{range .Lots}}{{if gt .Available 0}}<tr><td>{{.LotName}}</td><td>{{.Available}}</td><td>{{.TotalSpots}}</td></tr>{{end}}
    {{end}}
  </table>
  {{if .AppURL}}<p><a href="{{.AppURL}}">Book your spot now</a></p>{{end}}
  <p>ParkEase</p>
</body>
</html>`))

type reminderView struct {
	FullName string
	Lots     []domain.LotOccupancy
	AppURL   string
}

func renderReminder(v reminderView) (string, error) {
	return render(reminderTmpl, v)
}

var monthlyTmpl = template.Must(template.New("monthly").Funcs(funcs).Parse(`<html>
<body style="font-family: Arial, sans-serif;">
  <h2>{{.MonthName}} {{.Year}} parking activity</h2>
  <p>Hello {{.FullName}}, here is your summary for the month.</p>
  <ul>
    <li>Total bookings: {{.TotalBookings}}</li>
    <li>Completed sessions: {{.CompletedSessions}}</li>
    <li>Total spent: {{money .TotalSpent}}</li>
    <li>Total time parked: {{hours .TotalHours}}</li>
    <li>Average duration: {{hours .AvgDurationHours}}</li>
    {{if .MostUsedLot}}<li>Most used lot: {{.MostUsedLot}}</li>{{end}}
  </ul>
  {{if .LotUsage}}
  <h3>By parking lot</h3>
  <table border="1" cellpadding="6" cellspacing="0">
    <tr><th>Parking lot</th><th>Visits</th><th>Spent</th></tr>
    {{range .LotUsage}}<tr><td>{{.LotName}}</td><td>{{.Visits}}</td><td>{{money .Spent}}</td></tr>
    {{end}}
  </table>
  {{end}}
  {{if .Recent}}
  <h3>Recent sessions</h3>
  <table border="1" cellpadding="6" cellspacing="0">
    <tr><th>Vehicle</th><th>Lot</th><th>Parked</th><th>Released</th><th>Cost</th></tr>
    {{range .Recent}}<tr><td>{{.LicensePlate}}</td><td>{{.LotName}}</td><td>{{.ParkingTime}}</td>
      <td>{{if .ReleasedTime.Valid}}{{.ReleasedTime.String}}{{else}}In progress{{end}}</td>
      <td>{{if .Cost.Valid}}{{money .Cost.Float64}}{{else}}-{{end}}</td></tr>
    {{end}}
  </table>
  {{end}}
  <p><strong>Tip:</strong> {{.SavingsTip}}</p>
  {{if .AppURL}}<p><a href="{{.AppURL}}">Open ParkEase</a></p>{{end}}
</body>
</html>`))

type monthlyView struct {
	*domain.MonthlyReport
	AppURL string
}

func renderMonthly(v monthlyView) (string, error) {
	return render(monthlyTmpl, v)
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}
