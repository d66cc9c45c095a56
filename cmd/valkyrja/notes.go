package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/valkyrjaio/valkyrja"
	"github.com/valkyrjaio/valkyrja/pkg/cache"
	"github.com/valkyrjaio/valkyrja/pkg/container"
	"github.com/valkyrjaio/valkyrja/pkg/model"
	"github.com/valkyrjaio/valkyrja/pkg/orm"
)

const (
	notesService = "notes"
	statsService = "notes.stats"
	statsTTL     = 30 * time.Second
)

type note struct {
	model.Model
	ID     int64  `db:"id,pk,auto" model:"id" json:"id"`
	Author string `db:"author" model:"author" json:"author"`
	Body   string `db:"body" model:"body" json:"body"`
}

type noteInput struct {
	Body string `model:"body" cast:"trim"`
}

type loginInput struct {
	Name string `model:"name" cast:"trim,lower"`
}

// notesProvider binds the notes repository. It is deferred until a
// handler first resolves it.
type notesProvider struct {
	db *orm.DB
}

func (p notesProvider) Register(c *container.Container) error {
	c.Singleton(notesService, func(container.Resolver) (any, error) {
		return orm.NewRepository[note](p.db)
	})
	return nil
}

func (p notesProvider) Provides() []string { return []string{notesService} }

// dbProvider exposes the database and checks it on boot.
type dbProvider struct {
	db *orm.DB
}

func (p dbProvider) Register(c *container.Container) error {
	c.Instance(container.Key[*orm.DB](), p.db)
	return nil
}

func (p dbProvider) Boot(ctx context.Context, _ *container.Container) error {
	return p.db.Ping(ctx)
}

type notesHandler struct{}

func (notesHandler) Routes(r valkyrja.Router) {
	r.POST("/login", login, valkyrja.Name("login"))
	r.POST("/logout", logout, valkyrja.Name("logout"))

	r.Route("/notes", func(r valkyrja.Router) {
		r.GET("/", listNotes, valkyrja.Name("index"))
		r.GET("/stats", noteStats, valkyrja.Name("stats"))
		r.GET("/{id}", showNote, valkyrja.Name("show"), valkyrja.Where("id", "[0-9]+"))
		r.POST("/", createNote, valkyrja.Name("create"), valkyrja.UseNamed("auth"))
		r.DELETE("/{id}", deleteNote, valkyrja.Name("delete"), valkyrja.Where("id", "[0-9]+"), valkyrja.UseNamed("auth"))
	}, valkyrja.Name("notes."), valkyrja.UseNamed("api"))

	r.Redirect("/", "/notes/", http.StatusFound)
}

func notes(c valkyrja.Context) (*orm.Repository[note], error) {
	return valkyrja.Service[*orm.Repository[note]](c, notesService)
}

func login(c valkyrja.Context) error {
	var in loginInput
	if err := c.BindForm(&in); err != nil {
		return err
	}
	if in.Name == "" {
		return valkyrja.ErrUnprocessable("name is required")
	}
	if err := c.AuthenticateSession(in.Name); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func logout(c valkyrja.Context) error {
	if err := c.DestroySession(); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func listNotes(c valkyrja.Context) error {
	repo, err := notes(c)
	if err != nil {
		return err
	}
	page, err := repo.Paginate(c, valkyrja.QueryDefault(c, "page", 1), valkyrja.QueryDefault(c, "per_page", 20))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// noteStats serves the note count, cached for statsTTL.
func noteStats(c valkyrja.Context) error {
	stats, err := valkyrja.Service[cache.Cache[int64]](c, statsService)
	if err != nil {
		return err
	}
	total, err := cache.Remember(c, stats, "notes:count", func(ctx context.Context) (int64, time.Duration, error) {
		repo, err := notes(c)
		if err != nil {
			return 0, 0, err
		}
		n, err := repo.Count(ctx)
		return n, statsTTL, err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int64{"total": total})
}

func forgetStats(c valkyrja.Context) {
	if stats, err := valkyrja.Service[cache.Cache[int64]](c, statsService); err == nil {
		_ = stats.Delete(c, "notes:count")
	}
}

func showNote(c valkyrja.Context) error {
	repo, err := notes(c)
	if err != nil {
		return err
	}
	n, err := repo.Find(c, valkyrja.Param[int64](c, "id"))
	if errors.Is(err, orm.ErrNotFound) {
		return valkyrja.ErrNotFound("note not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, model.Expose(n))
}

func createNote(c valkyrja.Context) error {
	var in noteInput
	if err := c.BindForm(&in); err != nil {
		return err
	}
	if in.Body == "" {
		return valkyrja.ErrUnprocessable("body is required")
	}
	repo, err := notes(c)
	if err != nil {
		return err
	}
	n := &note{Author: c.UserID(), Body: in.Body}
	if err := repo.Create(c, n); err != nil {
		return err
	}
	url, err := c.URL("notes.show", map[string]string{"id": strconv.FormatInt(n.ID, 10)})
	if err != nil {
		return err
	}
	forgetStats(c)
	c.SetHeader("Location", url)
	return c.JSON(http.StatusCreated, model.Expose(n))
}

func deleteNote(c valkyrja.Context) error {
	repo, err := notes(c)
	if err != nil {
		return err
	}
	n, err := repo.Find(c, valkyrja.Param[int64](c, "id"))
	if errors.Is(err, orm.ErrNotFound) {
		return valkyrja.ErrNotFound("note not found")
	}
	if err != nil {
		return err
	}
	if !c.IsCurrentUser(n.Author) {
		return valkyrja.ErrForbidden("")
	}
	if err := repo.Delete(c, n); err != nil {
		return err
	}
	forgetStats(c)
	return c.NoContent(http.StatusNoContent)
}
