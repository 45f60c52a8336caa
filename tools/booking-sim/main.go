package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// booking-sim seeds a demo clinic through the gateway and books a first
// appointment, so a fresh stack has data to click around in.
func main() {
	var (
		baseURL  = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "gateway base url")
		clinicID = flag.String("clinic-id", getenv("CLINIC_ID", ""), "clinic id (random uuid when empty)")
		date     = flag.String("date", getenv("BOOK_DATE", time.Now().AddDate(0, 0, 1).Format("2006-01-02")), "appointment date (YYYY-MM-DD)")
		at       = flag.String("time", getenv("BOOK_TIME", "10:00"), "appointment time (HH:MM)")
		patient  = flag.String("patient", getenv("PATIENT_NAME", "Demo Patient"), "patient name")
		email    = flag.String("email", getenv("PATIENT_EMAIL", "demo@example.com"), "patient email for reminders")
	)
	flag.Parse()

	if strings.TrimSpace(*clinicID) == "" {
		*clinicID = uuid.NewString()
	}
	base := strings.TrimRight(*baseURL, "/")

	doJSON(http.MethodPut, base+"/api/v1/clinic/settings", map[string]any{
		"clinic_id":         *clinicID,
		"name":              "Demo Clinic",
		"open_time":         "09:00",
		"close_time":        "18:00",
		"slot_step_minutes": 15,
		"timezone":          "Europe/Amsterdam",
	}, nil)

	var svc struct {
		ServiceID string `json:"service_id"`
	}
	doJSON(http.MethodPost, base+"/api/v1/clinic/services", map[string]any{
		"clinic_id":        *clinicID,
		"name":             "Hydrafacial",
		"duration_minutes": 45,
		"price_cents":      12500,
		"active":           true,
	}, &svc)

	var member struct {
		StaffID string `json:"staff_id"`
	}
	doJSON(http.MethodPost, base+"/api/v1/clinic/staff", map[string]any{
		"clinic_id": *clinicID,
		"name":      "Demo Practitioner",
		"role":      "aesthetician",
		"active":    true,
	}, &member)

	// The catalog reaches scheduling via kafka; give the cache a moment so the
	// booking below resolves the service without the cold-start fallback.
	fmt.Println("waiting for catalog events to propagate...")
	time.Sleep(3 * time.Second)

	var booked struct {
		AppointmentID string `json:"appointment_id"`
		Date          string `json:"date"`
		Time          string `json:"time"`
		Status        string `json:"status"`
	}
	doJSON(http.MethodPost, base+"/api/v1/public/book?duration_minutes=45&service_name=Hydrafacial", map[string]any{
		"clinic_id":     *clinicID,
		"patient_name":  *patient,
		"patient_email": *email,
		"service_id":    svc.ServiceID,
		"staff_id":      member.StaffID,
		"date":          *date,
		"time":          *at,
	}, &booked)

	fmt.Printf("clinic_id=%s service_id=%s staff_id=%s\n", *clinicID, svc.ServiceID, member.StaffID)
	fmt.Printf("appointment_id=%s %s %s status=%s\n", booked.AppointmentID, booked.Date, booked.Time, booked.Status)
	fmt.Printf("slots: %s/api/v1/public/slots?clinic_id=%s&date=%s&service_id=%s\n", base, *clinicID, *date, svc.ServiceID)
}

func doJSON(method, url string, payload map[string]any, out any) {
	body, err := json.Marshal(payload)
	if err != nil {
		fatal(err.Error())
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fatal(err.Error())
	}
	if resp.StatusCode >= 300 {
		fatal(fmt.Sprintf("%s %s: status=%d body=%s", method, url, resp.StatusCode, strings.TrimSpace(string(data))))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			fatal(fmt.Sprintf("%s %s: decode response: %v", method, url, err))
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
