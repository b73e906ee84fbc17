package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkhp/registration-backend/internal/config"
	"github.com/dkhp/registration-backend/internal/database"
	"github.com/dkhp/registration-backend/internal/logger"
	"github.com/dkhp/registration-backend/internal/model"
	"github.com/dkhp/registration-backend/internal/repository"
	"github.com/dkhp/registration-backend/internal/service"
)

type seedSubject struct {
	code, name       string
	theory, practice int
	prerequisiteCode string
	prerequisiteKind model.PrerequisiteKind
}

type seedCourse struct {
	code, main           string
	day, begin, end, cap int
}

var subjects = []seedSubject{
	{code: "IT001", name: "Introduction to Programming", theory: 3, practice: 1},
	{code: "IT002", name: "Object-Oriented Programming", theory: 3, practice: 1,
		prerequisiteCode: "IT001", prerequisiteKind: model.PrerequisiteMustHavePassed},
	{code: "MA001", name: "Calculus I", theory: 4},
	{code: "MA002", name: "Calculus II", theory: 4,
		prerequisiteCode: "MA001", prerequisiteKind: model.PrerequisiteMustHaveStudied},
}

var courses = []seedCourse{
	{code: "IT001.O11", day: 2, begin: 1, end: 3, cap: 80},
	{code: "IT001.O11.1", main: "IT001.O11", day: 4, begin: 1, end: 2, cap: 40},
	{code: "IT001.O11.2", main: "IT001.O11", day: 4, begin: 3, end: 4, cap: 40},
	{code: "IT002.O11", day: 3, begin: 6, end: 8, cap: 60},
	{code: "IT002.O11.1", main: "IT002.O11", day: 5, begin: 6, end: 7, cap: 30},
	{code: "MA001.O11", day: 2, begin: 6, end: 9, cap: 100},
	{code: "MA001.O12", day: 6, begin: 1, end: 4, cap: 100},
	{code: "MA002.O11", day: 3, begin: 1, end: 4, cap: 2},
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	semesterRepo := repository.NewSemesterRepository(pool)
	subjectRepo := repository.NewSubjectRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	periodRepo := repository.NewRegistrationPeriodRepository(pool)
	registrationRepo := repository.NewRegistrationRepository(pool, subjectRepo)

	semesterService := service.NewSemesterService(semesterRepo)
	subjectService := service.NewSubjectService(subjectRepo, log)
	periodService := service.NewRegistrationPeriodService(periodRepo, semesterRepo, rdb, cfg.PeriodCacheTTL, log)
	courseService := service.NewCourseService(courseRepo, subjectRepo, semesterRepo, registrationRepo, periodService, log)

	fmt.Println("=== Seeding catalog ===")

	// ─── Semester ───
	now := time.Now()
	semester, err := findOrCreateSemester(ctx, semesterService, 1, now.Year())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed semester")
	}
	fmt.Printf("Semester %d/%d has ID %d\n", semester.SemesterNum, semester.Year, semester.ID)

	// ─── Subjects ───
	subjectIDs := make(map[string]int, len(subjects))
	for _, s := range subjects {
		if existing, err := subjectRepo.GetByCode(ctx, s.code); err == nil {
			subjectIDs[s.code] = existing.ID
			fmt.Printf("Found subject %s\n", s.code)
			continue
		}

		req := &model.CreateSubjectRequest{
			Code:            s.code,
			Name:            s.name,
			TheoryCredits:   s.theory,
			PracticeCredits: s.practice,
		}
		if s.prerequisiteCode != "" {
			req.Prerequisites = []model.PrerequisiteInput{{SubjectID: subjectIDs[s.prerequisiteCode], Kind: s.prerequisiteKind}}
		}
		created, err := subjectService.Create(ctx, req)
		if err != nil {
			log.Fatal().Err(err).Str("code", s.code).Msg("Failed to create subject")
		}
		subjectIDs[s.code] = created.ID
		fmt.Printf("Created subject %s\n", s.code)
	}

	// ─── Courses ───
	begin := now.AddDate(0, 0, 30)
	end := begin.AddDate(0, 4, 0)
	created := 0
	for _, c := range courses {
		_, err := courseService.Create(ctx, &model.CreateCourseRequest{
			Code:           c.code,
			SemesterID:     semester.ID,
			DayOfWeek:      c.day,
			BeginShift:     c.begin,
			EndShift:       c.end,
			BeginDate:      begin.Format("02/01/2006"),
			EndDate:        end.Format("02/01/2006"),
			TotalCapacity:  c.cap,
			Room:           fmt.Sprintf("B%d.%02d", c.day, c.begin),
			Language:       "EN",
			MainCourseCode: c.main,
		})
		switch {
		case errors.Is(err, service.ErrAlreadyExists):
			fmt.Printf("Found course %s\n", c.code)
		case err != nil:
			log.Fatal().Err(err).Str("code", c.code).Msg("Failed to create course")
		default:
			created++
		}
	}
	fmt.Printf("Created %d/%d courses\n", created, len(courses))

	// ─── Registration period ───
	period, err := periodService.Create(ctx, &model.RegistrationPeriodRequest{
		SemesterID: semester.ID,
		OpenTime:   now.Add(time.Minute),
		CloseTime:  now.AddDate(0, 0, 14),
	})
	switch {
	case errors.Is(err, service.ErrPeriodOverlap):
		fmt.Println("A registration period already covers the next two weeks, skipping")
	case err != nil:
		log.Fatal().Err(err).Msg("Failed to create registration period")
	default:
		fmt.Printf("Registration period %d opens at %s\n", period.ID, period.OpenTime.Format(time.DateTime))
	}

	fmt.Println("\nSeed completed!")
}

func findOrCreateSemester(ctx context.Context, svc *service.SemesterService, num, year int) (*model.Semester, error) {
	latest, err := svc.ListLatest(ctx)
	if err != nil {
		return nil, err
	}
	for i := range latest {
		if latest[i].SemesterNum == num && latest[i].Year == year {
			return &latest[i], nil
		}
	}
	return svc.Create(ctx, &model.CreateSemesterRequest{SemesterNum: num, Year: year})
}
