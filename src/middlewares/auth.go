package middlewares

import (
	"log"
	"os"
	"strconv"
	"strings"

	"replate/src/db"
	"replate/src/models"
	"replate/src/types"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

var jwtKey = []byte(os.Getenv("JWT_SECRET"))

func AuthMiddleware(ctx *gin.Context) {
	bearerToken := ctx.Request.Header.Get("Authorization")
	if !strings.HasPrefix(bearerToken, "Bearer") {
		ctx.AbortWithStatus(401)
		return
	}
	reqToken := strings.Split(bearerToken, " ")[1]
	if reqToken == "" {
		ctx.AbortWithStatus(401)
		return
	}
	claims := &types.Claims{}
	tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
		return jwtKey, nil
	})
	if err != nil {
		log.Printf("token error: %s\n", err.Error())
		ctx.AbortWithStatus(401)
		return
	}
	if !tkn.Valid {
		ctx.AbortWithStatus(401)
		return
	}

	dbi := db.GetDb()
	var user models.User
	uid, err := strconv.Atoi(claims.Subject)
	if err != nil {
		log.Println("error parsing claims:", err.Error())
		ctx.AbortWithStatus(401)
		return
	}
	dbi.Model(&models.User{}).Where(&models.User{ID: uint(uid)}).Find(&user)

	if uint(uid) != user.ID || user.ID < 1 {
		ctx.AbortWithStatus(401)
		return
	}
	ctx.Set("email", user.Email)
	ctx.Set("id", user.ID)
	ctx.Set("uid", user.UID)
	ctx.Set("role", user.Role)
}

// GetPrincipal resolves the authenticated caller set by AuthMiddleware.
func GetPrincipal(ctx *gin.Context) types.Principal {
	id := ctx.GetUint("id")
	role, _ := ctx.Get("role")
	r, _ := role.(types.Role)
	return types.Principal{UserID: id, Role: r}
}

// AdminOnly gates a route group to administrator accounts.
func AdminOnly(ctx *gin.Context) {
	p := GetPrincipal(ctx)
	if p.Role != types.ROLE_ADMIN {
		ctx.AbortWithStatus(403)
		return
	}
}
