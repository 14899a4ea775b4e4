package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	apierr "github.com/glasswall/icap-management-ui/pkg/api/types/errors"
	types "github.com/glasswall/icap-management-ui/pkg/api/types/policy"
	svcpolicy "github.com/glasswall/icap-management-ui/pkg/services/policy"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func GetCurrentPolicyHandler(svc svcpolicy.PolicyManagementService) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		p, err := svc.GetCurrentPolicy(ctx)
		if err != nil {
			return httpError(ctx, err)
		}
		return c.JSON(http.StatusOK, p)
	}
}

func GetDraftPolicyHandler(svc svcpolicy.PolicyManagementService) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		p, err := svc.GetDraftPolicy(ctx)
		if err != nil {
			return httpError(ctx, err)
		}
		return c.JSON(http.StatusOK, p)
	}
}

func GetPolicyHistoryHandler(svc svcpolicy.PolicyManagementService) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		h, err := svc.GetPolicyHistory(ctx)
		if err != nil {
			return httpError(ctx, err)
		}
		return c.JSON(http.StatusOK, h)
	}
}

func GetPolicyHandler(svc svcpolicy.PolicyManagementService, paramPolicyId string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id, err := policyId(c, paramPolicyId)
		if err != nil {
			return err
		}
		p, err := svc.GetPolicy(ctx, svcpolicy.GetPolicyByIdRequest{PolicyId: id})
		if err != nil {
			return httpError(ctx, err)
		}
		return c.JSON(http.StatusOK, p)
	}
}

func SaveDraftPolicyHandler(svc svcpolicy.PolicyManagementService) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		p, err := bindPolicy(c)
		if err != nil {
			return err
		}
		if err := svc.SaveDraftPolicy(ctx, svcpolicy.UpdatePolicyRequest{Policy: p}); err != nil {
			return httpError(ctx, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func PublishPolicyHandler(svc svcpolicy.PolicyManagementService, paramPolicyId string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id, err := policyId(c, paramPolicyId)
		if err != nil {
			return err
		}
		if err := svc.PublishPolicy(ctx, svcpolicy.PublishPolicyRequest{PolicyId: id}); err != nil {
			return httpError(ctx, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func DeletePolicyHandler(svc svcpolicy.PolicyManagementService, paramPolicyId string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id, err := policyId(c, paramPolicyId)
		if err != nil {
			return err
		}
		if err := svc.DeletePolicy(ctx, svcpolicy.DeletePolicyRequest{PolicyId: id}); err != nil {
			return httpError(ctx, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func DistributeAdaptionPolicyHandler(svc svcpolicy.PolicyManagementService) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if err := svc.DistributeAdaptionPolicy(ctx); err != nil {
			return httpError(ctx, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func policyId(c echo.Context, param string) (uuid.UUID, error) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierr.BadRequest("policy id should be a GUID: "+raw, err)
	}
	return id, nil
}

// requireJSON checks the content type of the request.
func requireJSON(c echo.Context) error {
	ctyp := strings.ToLower(c.Request().Header.Get("content-type"))
	if mediatype, _, _ := strings.Cut(ctyp, ";"); strings.TrimSpace(mediatype) != "application/json" {
		return apierr.BadRequest(
			"unexpected content type. it shoule be application/json", nil,
		)
	}
	return nil
}

// decodeJSON reads the request body into v.
func decodeJSON(c echo.Context, v any) error {
	if err := requireJSON(c); err != nil {
		return err
	}
	if err := json.NewDecoder(c.Request().Body).Decode(v); err != nil {
		return apierr.BadRequest("can not understand the requested json", err)
	}
	return nil
}

func bindPolicy(c echo.Context) (types.Policy, error) {
	p := types.Policy{}
	if err := decodeJSON(c, &p); err != nil {
		return types.Policy{}, err
	}
	return p, nil
}
