//go:build e2e

package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkhp/registration-backend/internal/config"
	"github.com/dkhp/registration-backend/internal/model"
	"github.com/dkhp/registration-backend/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const (
	defaultBaseURL = "http://localhost:8080/api/v1"

	firstStudent  = 2001
	secondStudent = 2002

	// racers contend for a single seat.
	racerBase = 3001
	racers    = 8
)

var (
	baseURL    string
	cfg        *config.Config
	semesterID int

	adminToken   string
	studentToken = map[int]string{}
	courseIDs    = map[string]int{}
)

func TestMain(m *testing.M) {
	// Load .env if present (ignore error)
	_ = godotenv.Load("../../.env")

	baseURL = os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	cfg = config.Load()

	if err := setup(); err != nil {
		fmt.Printf("Setup failed: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// setup clears registration data, creates a semester, and mints tokens with
// the server's JWT secret.
func setup() error {
	ctx := context.Background()

	conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer conn.Close(ctx)

	// Order matters due to FK.
	tables := []string{"registration_logs", "registrations", "registration_periods", "courses", "subject_prerequisites", "subjects", "semesters"}
	for _, table := range tables {
		if _, err := conn.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("cleanup %s: %w", table, err)
		}
	}

	year := time.Now().Year()
	if err := conn.QueryRow(ctx,
		`INSERT INTO semesters (semester_num, year) VALUES (1, $1) RETURNING id`, year,
	).Scan(&semesterID); err != nil {
		return fmt.Errorf("insert semester: %w", err)
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()
	if err := rdb.Del(ctx, config.CacheKey.CurrentRegPeriodKey()).Err(); err != nil {
		return fmt.Errorf("clear period cache: %w", err)
	}

	auth := service.NewAuthService(cfg)
	if adminToken, err = auth.MintToken(service.TokenTypeAdmin, 1, model.PermissionStrings()); err != nil {
		return err
	}
	ids := []int{firstStudent, secondStudent}
	for i := 0; i < racers; i++ {
		ids = append(ids, racerBase+i)
	}
	for _, id := range ids {
		if studentToken[id], err = auth.MintToken(service.TokenTypeStudent, id, nil); err != nil {
			return err
		}
	}
	return nil
}

// openPeriod inserts a period that is already open. The admin API only
// accepts periods that start in the future.
func openPeriod(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx,
		`INSERT INTO registration_periods (semester_id, open_time, close_time) VALUES ($1, $2, $3)`,
		semesterID, time.Now().Add(-time.Minute), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("insert period: %v", err)
	}
}

func TestE2EFlow(t *testing.T) {
	t.Run("AdminCreatesCatalog", func(t *testing.T) {
		for _, s := range []map[string]interface{}{
			{"code": "IT901", "name": "Programming Basics", "theory_credits": 3, "practice_credits": 1},
			{"code": "MA901", "name": "Discrete Math", "theory_credits": 4, "practice_credits": 0},
			{"code": "PH901", "name": "Physics Seminar", "theory_credits": 2, "practice_credits": 0},
		} {
			resp, err := post("/admin/subjects", s, adminToken)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			expectStatus(t, resp, http.StatusCreated)
		}

		begin := time.Now().AddDate(0, 1, 0).Format("02/01/2006")
		end := time.Now().AddDate(0, 5, 0).Format("02/01/2006")
		for _, c := range []map[string]interface{}{
			{"code": "IT901.O11", "day_of_week": 2, "begin_shift": 1, "end_shift": 3, "total_capacity": 50},
			{"code": "IT901.O11.1", "day_of_week": 4, "begin_shift": 1, "end_shift": 2, "total_capacity": 25, "main_course_code": "IT901.O11"},
			{"code": "MA901.O11", "day_of_week": 3, "begin_shift": 1, "end_shift": 4, "total_capacity": 1},
			{"code": "PH901.O11", "day_of_week": 5, "begin_shift": 6, "end_shift": 8, "total_capacity": 1},
		} {
			c["semester_id"] = semesterID
			c["begin_date"] = begin
			c["end_date"] = end

			resp, err := post("/admin/courses", c, adminToken)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			var body struct {
				Data struct {
					Course model.Course `json:"course"`
				} `json:"data"`
			}
			expectStatus(t, resp, http.StatusCreated)
			decodeJSON(t, resp, &body)
			courseIDs[body.Data.Course.Code] = body.Data.Course.ID
		}
	})

	t.Run("EnrollBeforePeriodOpens", func(t *testing.T) {
		resp, err := post("/student/enroll", batch("MA901.O11"), studentToken[firstStudent])
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		expectStatus(t, resp, http.StatusForbidden)
	})

	openPeriod(t)

	t.Run("EnrollPairAndLastSeat", func(t *testing.T) {
		results := enroll(t, "/student/enroll", firstStudent, "IT901.O11", "IT901.O11.1", "MA901.O11")
		for code, status := range results {
			if status != "Enroll successfully" {
				t.Errorf("%s: unexpected status %q", code, status)
			}
		}

		results = enroll(t, "/student/enroll", secondStudent, "MA901.O11")
		if results["MA901.O11"] != "The course MA901.O11 is full now" {
			t.Errorf("expected full course, got %q", results["MA901.O11"])
		}
	})

	t.Run("ConcurrentLastSeat", func(t *testing.T) {
		var wg sync.WaitGroup
		statuses := make([]string, racers)
		errs := make([]error, racers)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				statuses[i], errs[i] = enrollOne(racerBase+i, "PH901.O11")
			}(i)
		}
		wg.Wait()

		accepted := 0
		for i, status := range statuses {
			if errs[i] != nil {
				t.Fatalf("student %d: %v", racerBase+i, errs[i])
			}
			switch {
			case status == "Enroll successfully":
				accepted++
			case status != "The course PH901.O11 is full now":
				t.Errorf("student %d: unexpected status %q", racerBase+i, status)
			}
		}
		if accepted != 1 {
			t.Errorf("expected exactly one accepted enrollment, got %d", accepted)
		}

		ctx := context.Background()
		conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			t.Fatalf("db connect: %v", err)
		}
		defer conn.Close(ctx)

		var registered, rows int
		if err := conn.QueryRow(ctx,
			`SELECT registered_count, (SELECT COUNT(*) FROM registrations WHERE course_id = c.id)
			 FROM courses c WHERE c.id = $1`, courseIDs["PH901.O11"],
		).Scan(&registered, &rows); err != nil {
			t.Fatalf("query counts: %v", err)
		}
		if registered != 1 || rows != 1 {
			t.Errorf("registered_count=%d registrations=%d, want 1 and 1", registered, rows)
		}
	})

	t.Run("PracticeAloneIsRejected", func(t *testing.T) {
		results := enroll(t, "/student/enroll", secondStudent, "IT901.O11.1")
		if !strings.Contains(results["IT901.O11.1"], "theory course associated with one practice course") {
			t.Errorf("unexpected status %q", results["IT901.O11.1"])
		}
	})

	t.Run("UnknownCourse", func(t *testing.T) {
		resp, err := post("/student/enroll", map[string][]int{"course_ids": {999999}}, studentToken[firstStudent])
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		expectStatus(t, resp, http.StatusNotFound)
	})

	t.Run("CapacityStream", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
			baseURL+"/courses/capacity/stream?token="+studentToken[secondStudent], nil)
		req.Header.Set("Accept", "text/event-stream")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("no snapshot received: %v", err)
			}
			payload, ok := strings.CutPrefix(strings.TrimSpace(line), "data: ")
			if !ok {
				continue
			}
			var counts map[int]int
			if err := json.Unmarshal([]byte(payload), &counts); err != nil {
				t.Fatalf("decode snapshot: %v", err)
			}
			if counts[courseIDs["MA901.O11"]] != 1 || counts[courseIDs["IT901.O11"]] != 1 {
				t.Errorf("unexpected counts %v", counts)
			}
			return
		}
	})

	t.Run("UnenrollPair", func(t *testing.T) {
		results := enroll(t, "/student/unenroll", firstStudent, "IT901.O11")
		if !strings.Contains(results["IT901.O11"], "unenroll both theory and practice") {
			t.Errorf("unexpected status %q", results["IT901.O11"])
		}

		results = enroll(t, "/student/unenroll", firstStudent, "IT901.O11", "IT901.O11.1")
		for code, status := range results {
			if status != "Unenroll successfully" {
				t.Errorf("%s: unexpected status %q", code, status)
			}
		}
	})

	t.Run("EnrolledCourses", func(t *testing.T) {
		resp, err := get("/student/courses/enrolled", studentToken[firstStudent])
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		var body struct {
			Data struct {
				CourseIDs []int `json:"course_ids"`
			} `json:"data"`
		}
		expectStatus(t, resp, http.StatusOK)
		decodeJSON(t, resp, &body)
		if len(body.Data.CourseIDs) != 1 || body.Data.CourseIDs[0] != courseIDs["MA901.O11"] {
			t.Errorf("unexpected enrolled ids %v", body.Data.CourseIDs)
		}
	})

	t.Run("TheoryWithPracticeCannotBeDeleted", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/admin/courses/%d", baseURL, courseIDs["IT901.O11"]), nil)
		req.Header.Set("Authorization", "Bearer "+adminToken)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		expectStatus(t, resp, http.StatusConflict)
	})
}

// Helpers

func batch(codes ...string) map[string][]int {
	ids := make([]int, 0, len(codes))
	for _, c := range codes {
		ids = append(ids, courseIDs[c])
	}
	return map[string][]int{"course_ids": ids}
}

func enroll(t *testing.T, path string, student int, codes ...string) map[string]string {
	t.Helper()
	resp, err := post(path, batch(codes...), studentToken[student])
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var body struct {
		Data struct {
			Results map[string]string `json:"results"`
		} `json:"data"`
	}
	expectStatus(t, resp, http.StatusOK)
	decodeJSON(t, resp, &body)
	if len(body.Data.Results) != len(codes) {
		t.Fatalf("expected %d results, got %v", len(codes), body.Data.Results)
	}
	return body.Data.Results
}

// enrollOne is safe to call from several goroutines; it reports failures as errors.
func enrollOne(student int, code string) (string, error) {
	resp, err := post("/student/enroll", batch(code), studentToken[student])
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, readBody(resp))
	}
	var body struct {
		Data struct {
			Results map[string]string `json:"results"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Data.Results[code], nil
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		defer resp.Body.Close()
		t.Fatalf("status %d (want %d): %s", resp.StatusCode, want, readBody(resp))
	}
}

func post(path string, body interface{}, token string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest("POST", baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func get(path string, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("json decode: %v", err)
	}
}
