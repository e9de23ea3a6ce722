package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"replate/src/bookings"
	"replate/src/common"
	"replate/src/config"
	"replate/src/db"
	"replate/src/middlewares"
	"replate/src/models"
	"replate/src/types"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

func listingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/listings", func(ctx *gin.Context) {
			var filters types.ListingQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			dbi := db.GetDb()
			q := dbi.Model(&models.FoodListing{})
			if filters.Status != "" {
				q = q.Where("listing_status = ?", filters.Status)
			}
			if filters.Provider > 0 {
				q = q.Where("provider_id = ?", filters.Provider)
			}
			if filters.Claimable {
				q = q.Where("is_active = ? AND listing_status = ? AND expiry_time > ?",
					true, types.LISTING_ACTIVE, time.Now())
			}
			var listings []models.FoodListing
			if err := q.Order("expiry_time asc").Limit(100).Find(&listings).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": listings, "count": len(listings)})
		}).
		POST("/listings", func(ctx *gin.Context) {
			var body types.CreateListingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			principal := middlewares.GetPrincipal(ctx)
			expiry, err := time.Parse(config.TIME_PARSE_FORMAT, body.ExpiryTime)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			listing := models.FoodListing{
				Title:         body.Title,
				Slug:          slug.Make(body.Title),
				Location:      body.Location,
				TotalQuantity: body.TotalQuantity,
				Quantity:      body.TotalQuantity,
				Unit:          body.Unit,
				ExpiryTime:    expiry,
				ProviderID:    principal.UserID,
			}
			if body.Description != "" {
				listing.Description = &body.Description
			}
			dbi := db.GetDb()
			if err := dbi.Create(&listing).Error; err != nil {
				log.Printf("Error creating listing: %s\n", err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": listing})
		}).
		GET("/listings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			dbi := db.GetDb()
			var listing models.FoodListing
			if err := dbi.
				Model(&models.FoodListing{}).
				Where(&models.FoodListing{ID: params.ID}).
				Preload("Provider").
				Preload("Summaries").
				First(&listing).
				Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": listing})
		}).
		DELETE("/listings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			principal := middlewares.GetPrincipal(ctx)
			dbi := db.GetDb()
			err := dbi.Transaction(func(tx *gorm.DB) error {
				var listing models.FoodListing
				if err := tx.
					Where(&models.FoodListing{ID: params.ID}).
					First(&listing).
					Error; err != nil {
					return err
				}
				if listing.ProviderID != principal.UserID {
					return types.NewDomainError(types.ErrAuthorization, "not_listing_owner",
						"only the listing's provider may remove it")
				}
				listing.IsActive = false
				if err := tx.Save(&listing).Error; err != nil {
					return err
				}
				return tx.Delete(&listing).Error
			})
			if err != nil {
				ctx.JSON(types.HTTPStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		POST("/listings/:id/book", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.BookListingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			principal := middlewares.GetPrincipal(ctx)
			booking, err := bookings.Claim(principal, params.ID, body)
			if err != nil {
				ctx.JSON(types.HTTPStatus(err), gin.H{
					"error": err.Error(),
					"code":  types.ErrorCode(err),
				})
				return
			}
			event := "booking.created"
			if booking.Status == types.BOOKING_APPROVED {
				event = "booking.approved"
				common.ScheduleCredentialReminder(booking)
			}
			common.PublishBookingEvent(event, booking)
			ctx.JSON(http.StatusCreated, gin.H{"data": booking})
		})
	return g
}
