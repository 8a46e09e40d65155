package controllers

import (
	"net/http"

	"github.com/wishwell/wishwell-backend/api/responses"
	"github.com/wishwell/wishwell-backend/api/validators"
	"github.com/wishwell/wishwell-backend/internal/funding"
	pkgerrors "github.com/wishwell/wishwell-backend/pkg/errors"
	"github.com/wishwell/wishwell-backend/pkg/logger"
	"github.com/wishwell/wishwell-backend/pkg/money"
)

type contributePayload struct {
	Amount money.Amount `json:"amount" validate:"required,gt=0"`
}

type updateContributionPayload struct {
	Amount money.Amount `json:"amount" validate:"gte=0"`
}

// ContributionReserve claims everything still unfunded on the item.
func ContributionReserve(svc funding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "funding service unavailable"))
			return
		}

		contributorID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		agg, err := svc.Reserve(ctx, itemID, contributorID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, agg)
	}
}

// ContributionCreate records a partial contribution on the item.
func ContributionCreate(svc funding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "funding service unavailable"))
			return
		}

		contributorID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload contributePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		agg, err := svc.Contribute(ctx, itemID, contributorID, payload.Amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, agg)
	}
}

// ContributionUpdateOwn adjusts the caller's contribution; zero withdraws it.
func ContributionUpdateOwn(svc funding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "funding service unavailable"))
			return
		}

		contributorID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateContributionPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		agg, err := svc.UpdateOwn(ctx, itemID, contributorID, payload.Amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, agg)
	}
}

// ContributionWithdraw removes the caller's contribution entirely.
func ContributionWithdraw(svc funding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "funding service unavailable"))
			return
		}

		contributorID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		agg, err := svc.Withdraw(ctx, itemID, contributorID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, agg)
	}
}

// ContributionMine returns the caller's own row on the item.
func ContributionMine(svc funding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "funding service unavailable"))
			return
		}

		contributorID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := svc.GetOwnContribution(ctx, itemID, contributorID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// ItemFunding is the public funding aggregate for an item.
func ItemFunding(svc funding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "funding service unavailable"))
			return
		}

		itemID, err := pathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		agg, err := svc.GetAggregate(ctx, itemID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, agg)
	}
}
