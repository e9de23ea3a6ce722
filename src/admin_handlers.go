package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"replate/src/db"
	"replate/src/lib"
	"replate/src/middlewares"
	"replate/src/models"
	"replate/src/reports"
	"replate/src/types"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func adminHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/admin/users", func(ctx *gin.Context) {
			var query struct {
				Status string `form:"status" binding:"omitempty,oneof=ACTIVE REJECTED BLOCKED"`
			}
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			dbi := db.GetDb()
			q := dbi.Model(&models.User{})
			if query.Status != "" {
				q = q.Where("status = ?", query.Status)
			}
			var users []models.User
			if err := q.Limit(100).Find(&users).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": users, "count": len(users)})
		}).
		PUT("/admin/users/:id/status", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.ModerateUserRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			principal := middlewares.GetPrincipal(ctx)
			dbi := db.GetDb()
			var user models.User
			err := dbi.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Where(&models.User{ID: params.ID}).
					First(&user).
					Error; err != nil {
					return err
				}
				now := time.Now()
				user.Status = types.UserStatus(body.Status)
				user.ModeratedBy = &principal.UserID
				user.ModeratedAt = &now
				if body.Reason != "" {
					user.StatusReason = &body.Reason
				}
				return tx.Save(&user).Error
			})
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				log.Printf("Error moderating User [%d]: %s\n", params.ID, err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": user})
		}).
		GET("/admin/health", func(ctx *gin.Context) {
			dbi := db.GetDb()
			var activeListings, pendingBookings int64
			dbi.Model(&models.FoodListing{}).Where("is_active = ?", true).Count(&activeListings)
			dbi.Model(&models.Booking{}).Where("status = ?", types.BOOKING_PENDING).Count(&pendingBookings)
			ctx.JSON(http.StatusOK, gin.H{
				"active_listings":  activeListings,
				"pending_bookings": pendingBookings,
			})
		}).
		GET("/admin/reports/latest", func(ctx *gin.Context) {
			dbi := db.GetDb()
			var report models.Report
			if err := dbi.
				Order("period_end desc").
				First(&report).
				Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			periodKey := report.PeriodEnd.Format("2006-01-02")
			narrative := lib.GetCachedReport(context.Background(), periodKey)
			if narrative == "" && report.Narrative != nil {
				narrative = *report.Narrative
			}
			ctx.JSON(http.StatusOK, gin.H{"data": report, "narrative": narrative})
		}).
		GET("/admin/reports", func(ctx *gin.Context) {
			dbi := db.GetDb()
			var results []models.Report
			if err := dbi.
				Order("period_end desc").
				Limit(52).
				Find(&results).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": results, "count": len(results)})
		}).
		POST("/admin/reports/generate", func(ctx *gin.Context) {
			report, err := reports.GenerateWeeklyReport(reports.TemplateNarrator{}, time.Now())
			if err != nil {
				log.Printf("Error generating report: %s\n", err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": report})
		})
	return g
}
