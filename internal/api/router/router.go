package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/avatar-compressor/internal/api/handlers/avatar"
	"github.com/aliskhannn/avatar-compressor/internal/api/handlers/preference"
	"github.com/aliskhannn/avatar-compressor/internal/middleware"
)

func Setup(ah *avatar.Handler, ph *preference.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	api := r.Group("/api")

	api.POST("/avatars", ah.Upload)          // uploading profile picture
	api.GET("/avatars/:id", ah.Get)          // getting avatar bytes by id
	api.GET("/avatars/:id/meta", ah.GetMeta) // getting avatar status/metadata
	api.DELETE("/avatars/:id", ah.Delete)    // deleting avatar by id

	api.GET("/preference", ph.Get) // reading the compression size preference
	api.PUT("/preference", ph.Set) // storing the compression size preference

	return r
}
