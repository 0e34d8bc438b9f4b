package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"postboard/app/services"
	"postboard/logger"
)

// CommentController handles HTTP requests for comments
type CommentController struct {
	commentService *services.CommentService
	logger         *logger.Logger
}

// NewCommentController creates a new CommentController
func NewCommentController(commentService *services.CommentService, log *logger.Logger) *CommentController {
	if log == nil {
		log = logger.Nop()
	}
	return &CommentController{
		commentService: commentService,
		logger:         log.WithComponent("comment_controller"),
	}
}

// Create attaches a comment to the post named in the path
func (cc *CommentController) Create(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]
	input := decodeBody[services.CreateCommentInput](r)

	post, err := cc.commentService.CreateComment(postID, input)
	if err != nil {
		sendServiceError(w, r, cc.logger, err)
		return
	}

	sendJSON(w, http.StatusCreated, post)
}
