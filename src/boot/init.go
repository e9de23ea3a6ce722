package boot

import (
	"log"
	"time"

	"replate/src/bookings"
	"replate/src/common"
	"replate/src/config"
	"replate/src/db"
	"replate/src/lib"
	"replate/src/models"
	"replate/src/reports"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.FoodListing{},
		&models.Booking{},
		&models.BookingSummary{},
		&models.Notification{},
		&models.Report{},
		&models.JobTask{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

func InitBroker() {
	go RecoverQueuedJobs()
	go UpdateExpiredJobs()
	go lib.KafkaCreateTopics(lib.BookingsTopic)
	go common.Consumers()
	if config.IsProd() {
		go common.SNSSubscribes()
	}
}

func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}

	// Past-expiry listings settle lazily on read paths too; the sweeper
	// bounds how stale a dormant listing can get.
	if _, err := lib.CreateCronJob(func() {
		n, err := bookings.ExpireListings(time.Now())
		if err != nil {
			log.Printf("Error on expiry sweep: %s\n", err.Error())
			return
		}
		if n > 0 {
			log.Printf("Expiry sweep settled %d listings\n", n)
		}
	}, config.ExpirySweepInterval); err != nil {
		log.Printf("Error scheduling expiry sweep: %s\n", err.Error())
	}

	if _, err := sched.NewJob(
		gocron.WeeklyJob(1, gocron.NewWeekdays(time.Monday), gocron.NewAtTimes(gocron.NewAtTime(6, 0, 0))),
		gocron.NewTask(func() {
			if _, err := reports.GenerateWeeklyReport(reports.TemplateNarrator{}, time.Now()); err != nil {
				log.Printf("Error generating weekly report: %s\n", err.Error())
			}
		}),
	); err != nil {
		log.Printf("Error scheduling weekly report: %s\n", err.Error())
	}

	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	err = sched.Shutdown()
	if err != nil {
		log.Println("An error has occurred while stopping Scheduler. Check logs for info")
		return
	}
}

// RecoverQueuedJobs re-registers pending one-time jobs that were scheduled
// on the in-process scheduler before the last restart.
func RecoverQueuedJobs() error {
	db := db.GetDb()
	ss := db.Session(&gorm.Session{PrepareStmt: true})
	var jobTasks []models.JobTask
	today := time.Now()
	in1m := today.Add(1 * time.Minute)
	in3months := today.Add((24 * 30 * 3) * time.Hour)
	err := ss.
		Model(&models.JobTask{}).Select("id", "name", "payload", "topic", "runs_at").
		Where(&models.JobTask{Status: "pending", JobType: "OneTimeJobStartDateTime"}).
		Where("runs_at BETWEEN ? AND ?", in1m, in3months).
		Order("runs_at asc").
		Limit(100).
		Find(&jobTasks).
		Error
	if err != nil {
		log.Printf("Error retrieving jobs: %s\n", err.Error())
		return err
	}
	log.Printf("Found %d pending jobs", len(jobTasks))
	for _, jobTask := range jobTasks {
		jobDef := gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(jobTask.RunsAt))
		jt := gocron.NewTask(func() {
			err := lib.KafkaProduceMessage("jobs", jobTask.Topic, jobTask.Payload)
			if err != nil {
				log.Printf("Error on producing message: %s\n", err.Error())
				return
			}
		})
		jobID, err := lib.CreateOneTimeCronJob(jobDef, jt)
		if err != nil {
			log.Printf("Failed to schedule job [%s]. Skipping: %s\n", jobTask.ID.String(), err.Error())
			continue
		}
		log.Printf("Added job to scheduler: name=%s id=%s job=%s\n", jobTask.Name, jobTask.ID.String(), *jobID)
	}

	return nil
}

// UpdateExpiredJobs marks jobs whose run window already passed so they are
// not re-queued on the next boot.
func UpdateExpiredJobs() {
	db := db.GetDb()
	err := db.
		Transaction(func(tx *gorm.DB) error {
			err := tx.Model(&models.JobTask{}).
				Where(&models.JobTask{Status: "pending"}).
				Where("runs_at < ?", time.Now()).
				Update("status", "expired").
				Error
			return err
		})
	if err != nil {
		log.Printf("Error updating expired jobs: %s\n", err.Error())
	}
}
