package controllers

import (
	"encoding/hex"
	"net/http"
	"strings"

	"golang.org/x/crypto/sha3"

	"postboard/app/services"
	"postboard/logger"
)

// PostController handles HTTP requests for blog posts
type PostController struct {
	postService *services.PostService
	logger      *logger.Logger
}

// NewPostController creates a new PostController
func NewPostController(postService *services.PostService, log *logger.Logger) *PostController {
	if log == nil {
		log = logger.Nop()
	}
	return &PostController{
		postService: postService,
		logger:      log.WithComponent("post_controller"),
	}
}

// Index returns every post. The response carries an ETag so pollers can
// skip unchanged lists.
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	posts, err := pc.postService.ListPosts()
	if err != nil {
		sendServiceError(w, r, pc.logger, err)
		return
	}

	body, err := encodeJSON(posts)
	if err != nil {
		sendServiceError(w, r, pc.logger, err)
		return
	}

	etag := computeETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Create handles creating a new post
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	input := decodeBody[services.CreatePostInput](r)

	post, err := pc.postService.CreatePost(input)
	if err != nil {
		sendServiceError(w, r, pc.logger, err)
		return
	}

	sendJSON(w, http.StatusCreated, post)
}

func computeETag(body []byte) string {
	sum := sha3.Sum256(body)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
