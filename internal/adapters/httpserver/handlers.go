package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikey/llm-task-extractor/internal/adapters/session"
	"github.com/mikey/llm-task-extractor/internal/core"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const sessionCookie = "session_id"

// ExtractRequest is the body of POST /tasks/extract
type ExtractRequest struct {
	Emails []core.RawEmail `json:"emails" binding:"required"`
}

// currentSession loads the session named by the cookie
func (srv *HTTPServer) currentSession(c *gin.Context) (*session.Session, error) {
	id, err := c.Cookie(sessionCookie)
	if err != nil || id == "" {
		return nil, session.ErrNotFound
	}
	return srv.cfg.Sessions.Get(c.Request.Context(), id)
}

func (srv *HTTPServer) login(c *gin.Context) {
	sess := session.New(srv.cfg.Clock())
	if err := srv.cfg.Sessions.Save(c.Request.Context(), sess); err != nil {
		srv.l.Error("Failed to save session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start session"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, sess.ID, 0, "/", "", srv.cfg.CookieSecure, true)
	c.Redirect(http.StatusFound, srv.cfg.OAuth.AuthCodeURL(sess.State, oauth2.AccessTypeOffline))
}

func (srv *HTTPServer) callback(c *gin.Context) {
	ctx := c.Request.Context()

	sess, err := srv.currentSession(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no session, start at /auth/login"})
		return
	}
	if c.Query("state") == "" || c.Query("state") != sess.State {
		srv.l.Warn("OAuth state mismatch", zap.String("session_id", sess.ID))
		c.JSON(http.StatusBadRequest, gin.H{"error": "state mismatch"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing authorization code"})
		return
	}

	token, err := srv.cfg.OAuth.Exchange(ctx, code)
	if err != nil {
		srv.l.Error("OAuth code exchange failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "authorization failed"})
		return
	}

	sess.Token = token
	if err := srv.cfg.Sessions.Save(ctx, sess); err != nil {
		srv.l.Error("Failed to save session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save session"})
		return
	}

	c.Redirect(http.StatusFound, "/tasks")
}

func (srv *HTTPServer) fetchTasks(c *gin.Context) {
	ctx := c.Request.Context()

	sess, err := srv.currentSession(c)
	if err != nil || !sess.Authorized() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authorized, start at /auth/login"})
		return
	}

	ts := srv.cfg.OAuth.TokenSource(ctx, sess.Token)
	box, err := srv.cfg.Mailboxes(ctx, ts)
	if err != nil {
		srv.l.Error("Failed to open mailbox", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "mailbox unavailable"})
		return
	}

	emails, err := box.ListRecent(ctx, srv.cfg.MaxResults)
	if err != nil {
		srv.l.Error("Failed to list messages", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "mailbox unavailable"})
		return
	}

	// One reference instant for the whole batch
	ref := srv.cfg.Clock().In(srv.cfg.Location)
	tasks := srv.cfg.Service.AssembleBatch(ctx, emails, ref)
	srv.cfg.Tasks.Replace(sess.ID, tasks)

	if refreshed, err := ts.Token(); err == nil && refreshed.AccessToken != sess.Token.AccessToken {
		sess.Token = refreshed
		if err := srv.cfg.Sessions.Save(ctx, sess); err != nil {
			srv.l.Warn("Failed to persist refreshed token", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, tasks)
}

func (srv *HTTPServer) latestTasks(c *gin.Context) {
	sess, err := srv.currentSession(c)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			srv.l.Error("Failed to load session", zap.Error(err))
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no session"})
		return
	}
	c.JSON(http.StatusOK, srv.cfg.Tasks.List(sess.ID))
}

func (srv *HTTPServer) extractTasks(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, srv.cfg.MaxRequestBytes)

	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Emails) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "emails must not be empty"})
		return
	}
	if len(req.Emails) > srv.cfg.MaxBatchEmails {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many emails in one request"})
		return
	}

	ref := srv.cfg.Clock().In(srv.cfg.Location)
	c.JSON(http.StatusOK, srv.cfg.Service.AssembleBatch(c.Request.Context(), req.Emails, ref))
}

func (srv *HTTPServer) intakeTasks(c *gin.Context) {
	c.JSON(http.StatusOK, srv.cfg.Tasks.List(core.SMTPIntakeOwner))
}
