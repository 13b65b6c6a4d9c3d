package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/madhav-v/Pseudonymous-College-Platform/internal/auth"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/config"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/mail"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/media"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/model"
)

type UserStore interface {
	CreateUser(ctx context.Context, user model.User) (model.User, error)
	GetUserByID(ctx context.Context, id int64) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	UsernameTaken(ctx context.Context, name string) (bool, error)
	SetUsername(ctx context.Context, id int64, name string) (model.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	SetRefreshToken(ctx context.Context, id int64, tokenHash string, expiresAt time.Time) error
}

type OrgStore interface {
	CreateOrg(ctx context.Context, org model.Org) (model.Org, error)
	GetOrg(ctx context.Context, id int64) (model.Org, error)
	ListOrgs(ctx context.Context) ([]model.Org, error)
	SetOrgLogo(ctx context.Context, id int64, url string) (model.Org, error)
	SetOrgMainPic(ctx context.Context, id int64, url string) (model.Org, error)
	SetOrgVideo(ctx context.Context, id int64, url string) (model.Org, error)
	AppendOrgOtherPics(ctx context.Context, id int64, urls []string) (model.Org, error)
	DeleteOrg(ctx context.Context, id int64) error
}

type MaterialStore interface {
	CreateMaterial(ctx context.Context, material model.Material) (model.Material, error)
	GetMaterial(ctx context.Context, id int64) (model.Material, error)
	ListMaterials(ctx context.Context) ([]model.Material, error)
	UpdateMaterial(ctx context.Context, material model.Material) (model.Material, error)
	DeleteMaterial(ctx context.Context, id int64) error
}

type PostStore interface {
	CreatePost(ctx context.Context, post model.Post) (model.Post, error)
	GetPost(ctx context.Context, id int64) (model.Post, error)
	ListPostsExcludingAuthor(ctx context.Context, authorID int64, limit, offset int) ([]model.Post, error)
	ListPostsByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]model.Post, error)
	UpdatePost(ctx context.Context, post model.Post) (model.Post, error)
	DeletePost(ctx context.Context, id int64) error
	ToggleReaction(ctx context.Context, postID, userID int64, kind model.Reaction) (model.Post, error)
	CreateComment(ctx context.Context, comment model.Comment) (model.Comment, error)
	CreateReply(ctx context.Context, reply model.Reply) (model.Reply, error)
}

// Store is implemented by *repository.Store.
type Store interface {
	UserStore
	OrgStore
	MaterialStore
	PostStore
}

// ResetTokenLedger makes reset tokens single use. A nil ledger leaves reset
// tokens valid until they expire.
type ResetTokenLedger interface {
	Remember(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error
	Consume(ctx context.Context, tokenID string) (int64, bool, error)
}

type Server struct {
	cfg         config.Config
	store       Store
	issuer      *auth.Issuer
	uploader    media.Uploader
	mailer      mail.Mailer
	resetTokens ResetTokenLedger
	log         logrus.FieldLogger
	registry    *prometheus.Registry
	metrics     *metrics
}

func NewServer(cfg config.Config, store Store, uploader media.Uploader, mailer mail.Mailer, resetTokens ResetTokenLedger, log logrus.FieldLogger) *Server {
	registry := prometheus.NewRegistry()
	return &Server{
		cfg:         cfg,
		store:       store,
		issuer:      auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.ResetTokenTTL),
		uploader:    uploader,
		mailer:      mailer,
		resetTokens: resetTokens,
		log:         log,
		registry:    registry,
		metrics:     newMetrics(registry),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(s.metrics.middleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	admin := s.requireRole(model.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/forgetPassword", s.handleForgetPassword)
			r.Post("/resetPassword", s.handleResetPassword)
			r.With(s.authMiddleware).Post("/addUsername", s.handleAddUsername)
		})

		r.Route("/org", func(r chi.Router) {
			r.Get("/allOrgs", s.handleListOrgs)
			r.With(s.authMiddleware).Get("/myOrg", s.handleMyOrg)
			r.With(s.authMiddleware, admin).Post("/create", s.handleCreateOrg)
			r.With(s.authMiddleware, admin).Post("/addLogo", s.handleAddLogo)
			r.With(s.authMiddleware, admin).Post("/addMainPic", s.handleAddMainPic)
			r.With(s.authMiddleware, admin).Post("/addOtherPics", s.handleAddOtherPics)
			r.With(s.authMiddleware, admin).Post("/addOrgVideo", s.handleAddOrgVideo)
			r.With(s.authMiddleware, admin).Delete("/{id}", s.handleDeleteOrg)
		})

		r.Route("/material", func(r chi.Router) {
			r.Get("/getMaterials", s.handleListMaterials)
			r.Get("/getMaterialById/{id}", s.handleGetMaterial)
			r.With(s.authMiddleware, admin).Post("/addMaterial", s.handleAddMaterial)
			r.With(s.authMiddleware, admin).Put("/updateMaterial/{id}", s.handleUpdateMaterial)
			r.With(s.authMiddleware, admin).Delete("/deleteMaterialById/{id}", s.handleDeleteMaterial)
		})

		r.Route("/post", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/createPost", s.handleCreatePost)
			r.Get("/getAllPosts", s.handleListPosts)
			r.Get("/getPostById/{id}", s.handleGetPost)
			r.Delete("/deletePost/{id}", s.handleDeletePost)
			r.Get("/getMyPosts", s.handleMyPosts)
			r.Get("/getPostsByUser/{id}", s.handlePostsByUser)
			r.Put("/updatePost/{id}", s.handleUpdatePost)
			r.Post("/likePost/{id}", s.handleReaction(model.ReactionLike))
			r.Post("/dislikePost/{id}", s.handleReaction(model.ReactionDislike))
			r.Post("/addComment/{id}", s.handleAddComment)
			r.Post("/addReply/{commentId}", s.handleAddReply)
		})
	})

	return r
}
