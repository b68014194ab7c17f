package server

import (
	"encoding/json"
	stdhttp "net/http"

	"github.com/GustavoAl5317/momentusi-sub000/internal/conf"
	"github.com/GustavoAl5317/momentusi-sub000/internal/errors"
	"github.com/GustavoAl5317/momentusi-sub000/internal/service"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Bootstrap, svc *service.TimelineService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
		http.ErrorEncoder(customErrorEncoder),
	}
	if c.Server.Http.Addr != "" {
		opts = append(opts, http.Address(c.Server.Http.Addr))
	}
	srv := http.NewServer(opts...)

	registerRoutes(srv, svc, c)

	srv.Route("/").GET("/health", func(ctx http.Context) error {
		return ctx.Result(200, map[string]string{"status": "ok", "service": "timeline-service"})
	})

	return srv
}

func registerRoutes(srv *http.Server, svc *service.TimelineService, c *conf.Bootstrap) {
	r := srv.Route("/api/v1")

	r.POST("/timelines", func(ctx http.Context) error {
		var req service.CreateTimelineRequest
		if err := ctx.Bind(&req); err != nil {
			return errors.BadRequest(errors.ErrCodeInvalidInput, "invalid request body")
		}
		reply, err := svc.CreateTimeline(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	// public fetch by slug, password-gated when private
	r.GET("/timeline/{slug}", func(ctx http.Context) error {
		reply, err := svc.GetPublicTimeline(ctx, ctx.Vars().Get("slug"), ctx.Query().Get("password"))
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/timelines/{id}/edit", func(ctx http.Context) error {
		reply, err := svc.GetTimelineForEdit(ctx, ctx.Vars().Get("id"), ctx.Query().Get("token"))
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.PUT("/timelines/{id}", func(ctx http.Context) error {
		var req service.UpdateTimelineRequest
		if err := ctx.Bind(&req); err != nil {
			return errors.BadRequest(errors.ErrCodeInvalidInput, "invalid request body")
		}
		reply, err := svc.UpdateTimeline(ctx, ctx.Vars().Get("id"), ctx.Query().Get("token"), &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/checkout", func(ctx http.Context) error {
		var req service.CheckoutRequest
		if err := ctx.Bind(&req); err != nil {
			return errors.BadRequest(errors.ErrCodeInvalidInput, "invalid request body")
		}
		origin := ctx.Header().Get("Origin")
		host := ctx.Request().Host
		reply, err := svc.CreateCheckout(ctx, &req, origin, host)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	// always acknowledged with 200: a non-2xx would trigger the gateway's
	// redelivery storm
	r.POST("/webhooks/mercadopago", func(ctx http.Context) error {
		var req service.WebhookRequest
		if err := ctx.Bind(&req); err != nil {
			return ctx.Result(200, &service.WebhookReply{Received: true})
		}
		return ctx.Result(200, svc.HandleWebhook(ctx, &req))
	})

	r.POST("/timelines/{id}/sync-payment", func(ctx http.Context) error {
		reply, err := svc.SyncPayment(ctx, ctx.Vars().Get("id"))
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/timelines/{id}/publish", func(ctx http.Context) error {
		reply, err := svc.PublishTimeline(ctx, ctx.Vars().Get("id"))
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/timelines/{id}/links", func(ctx http.Context) error {
		origin := ctx.Header().Get("Origin")
		host := ctx.Request().Host
		reply, err := svc.GetLinks(ctx, ctx.Vars().Get("id"), ctx.Query().Get("token"), origin, host)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	// internal endpoints for platform-cron setups, guarded by the shared
	// secret; the cmd/cron binary calls the same usecases directly
	internal := srv.Route("/internal")
	internal.POST("/reconcile", func(ctx http.Context) error {
		if err := checkCronSecret(ctx, c); err != nil {
			return err
		}
		reply, err := svc.SweepPayments(ctx)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
	internal.POST("/cleanup", func(ctx http.Context) error {
		if err := checkCronSecret(ctx, c); err != nil {
			return err
		}
		reply, err := svc.CleanupDrafts(ctx)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
}

func checkCronSecret(ctx http.Context, c *conf.Bootstrap) error {
	secret := ""
	if c.App != nil {
		secret = c.App.CronSecret
	}
	if secret == "" || ctx.Header().Get("X-Cron-Secret") != secret {
		return errors.Forbidden(errors.ErrCodeCronSecretInvalid, "invalid cron secret")
	}
	return nil
}

// customErrorEncoder renders the error JSON shape the clients expect:
// {error, details?}, plus requiresPassword for the private-timeline gate.
func customErrorEncoder(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	se := kerrors.FromError(err)
	status := stdhttp.StatusInternalServerError
	response := map[string]interface{}{
		"error": "internal server error",
	}

	if se != nil {
		status = mapErrorStatus(int(se.Code))
		response["error"] = se.Message
		if se.Reason == errors.ReasonPasswordRequired {
			response["requiresPassword"] = true
		}
		if code, ok := se.Metadata["biz_code"]; ok {
			response["details"] = code
		}
	} else if err != nil {
		response["error"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func mapErrorStatus(code int) int {
	if code >= 100 && code < 600 {
		return code
	}
	return stdhttp.StatusInternalServerError
}
