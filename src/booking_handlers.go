package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"time"

	"replate/src/bookings"
	"replate/src/common"
	"replate/src/config"
	"replate/src/db"
	"replate/src/lib"
	awslib "replate/src/lib/aws"
	"replate/src/middlewares"
	"replate/src/models"
	"replate/src/types"

	"github.com/gin-gonic/gin"
	"github.com/yeqown/go-qrcode"
	"gorm.io/gorm"
)

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/bookings", func(ctx *gin.Context) {
			var query struct {
				As string `form:"as" binding:"omitempty,oneof=recipient provider"`
			}
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			principal := middlewares.GetPrincipal(ctx)
			dbi := db.GetDb()
			q := dbi.Model(&models.Booking{})
			if query.As == "provider" {
				q = q.Where(&models.Booking{ProviderID: principal.UserID})
			} else {
				q = q.Where(&models.Booking{RecipientID: principal.UserID})
			}
			var results []models.Booking
			if err := q.
				Preload("Listing").
				Order("requested_at desc").
				Limit(100).
				Find(&results).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": results, "count": len(results)})
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			principal := middlewares.GetPrincipal(ctx)
			dbi := db.GetDb()
			var booking models.Booking
			ss := dbi.Session(&gorm.Session{PrepareStmt: true})
			if err := ss.
				Model(&models.Booking{}).
				Where(&models.Booking{ID: params.ID}).
				Preload("Listing").
				Preload("Recipient").
				First(&booking).
				Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			if booking.RecipientID != principal.UserID && booking.ProviderID != principal.UserID {
				ctx.Status(http.StatusForbidden)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		PUT("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.UpdateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			action, err := bookings.ParseTransitionAction(body.Action)
			if err != nil {
				ctx.JSON(types.HTTPStatus(err), gin.H{"error": err.Error()})
				return
			}
			principal := middlewares.GetPrincipal(ctx)
			cmd := bookings.TransitionCommand{
				Action:           action,
				ApprovedQuantity: body.ApprovedQuantity,
				ProviderResponse: body.ProviderResponse,
				Rating:           body.Rating,
				Feedback:         body.Feedback,
				CollectionCode:   body.CollectionCode,
				QRData:           body.QRData,
				Restock:          bookings.RestockPolicy(config.RestockOnCancel()),
			}
			booking, err := bookings.Apply(principal, params.ID, cmd)
			if err != nil {
				ctx.JSON(types.HTTPStatus(err), gin.H{
					"error": err.Error(),
					"code":  types.ErrorCode(err),
				})
				return
			}
			if booking.Status == types.BOOKING_APPROVED {
				common.ScheduleCredentialReminder(booking)
			}
			// rate leaves the booking collected; republishing the status
			// would re-send the collection confirmation to both parties.
			event := fmt.Sprintf("booking.%s", booking.Status)
			if action == bookings.ActionRate {
				event = "booking.rated"
			}
			common.PublishBookingEvent(event, booking)
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		POST("/bookings/verify-collection", func(ctx *gin.Context) {
			var body types.VerifyCollectionRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			principal := middlewares.GetPrincipal(ctx)
			booking, err := bookings.VerifyCollection(principal, body)
			if err != nil {
				ctx.JSON(types.HTTPStatus(err), gin.H{
					"verified": false,
					"error":    err.Error(),
					"code":     types.ErrorCode(err),
				})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"verified": true, "data": booking})
		}).
		POST("/bookings/:id/code", func(ctx *gin.Context) {
			var query struct {
				ShareLink bool `form:"share_link"`
			}
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			principal := middlewares.GetPrincipal(ctx)

			// Ownership is checked before the cache so a cached signed URL
			// is never served to anyone but the booking's recipient.
			dbi := db.GetDb()
			var booking models.Booking
			if err := dbi.
				Where(&models.Booking{ID: params.ID}).
				First(&booking).
				Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			if booking.RecipientID != principal.UserID {
				ctx.JSON(http.StatusForbidden, gin.H{"error": "only the booking's recipient may download the collection code"})
				return
			}
			if !booking.CredentialActive(time.Now()) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("no active collection credential for booking [%d]", booking.ID)})
				return
			}

			filename := fmt.Sprintf("claimcode_%d", params.ID)
			wd, err := os.Getwd()
			if err != nil {
				log.Printf("Could not read working directory: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			tempdir := os.Getenv("TEMP_DIR")
			filepath := path.Join(wd, tempdir, fmt.Sprintf("%s.png", filename))

			content := lib.GetCredentialAssetURL(context.Background(), params.ID)
			if content != "" {
				if query.ShareLink {
					ctx.JSON(http.StatusOK, gin.H{"url": content})
					return
				}
				if err := awslib.S3DownloadAsset(filename); err != nil {
					log.Printf("Error downloading asset [%s] from S3 bucket: %s\n", filename, err.Error())
					ctx.Status(http.StatusBadRequest)
					return
				}
				ctx.FileAttachment(filepath, "claimcode.png")
				return
			}

			qrc, err := qrcode.New(*booking.QRCode)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			if err = qrc.Save(filepath); err != nil {
				log.Printf("Could not save qrcode to file [%s]: %s\n", filepath, err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			var signedURL string
			url, err := awslib.S3UploadAsset(filename, filepath)
			if err != nil {
				log.Printf("Error uploading asset to S3 bucket: %s\n", err.Error())
			} else {
				signedURL = *url
				if err := lib.CacheCredentialAssetURL(context.Background(), params.ID, signedURL, 2*time.Hour); err != nil {
					log.Printf("Could not cache signed URL for Booking [%d]: %s\n", params.ID, err.Error())
				}
			}
			if query.ShareLink && signedURL != "" {
				ctx.JSON(http.StatusOK, gin.H{"url": signedURL})
				return
			}
			ctx.FileAttachment(filepath, "claimcode.png")
		})
	return g
}
