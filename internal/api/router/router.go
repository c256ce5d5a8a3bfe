package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/imageforge/imageforge/internal/api/handlers/feedback"
	"github.com/imageforge/imageforge/internal/api/handlers/job"
	"github.com/imageforge/imageforge/internal/middleware"
)

func Setup(jobs *job.Handler, fb *feedback.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	api := r.Group("/api")

	api.POST("/batch-process", jobs.BatchProcess) // processing a batch of images
	api.GET("/job/:id", jobs.GetJob)              // getting job metadata by id
	api.POST("/feedback", fb.Feedback)            // storing user feedback
	api.POST("/submit-rating", fb.Rating)         // storing a tool rating

	r.GET("/download/:filename", jobs.Download) // serving processed outputs

	return r
}
