/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"fmt"
	"net/http"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Wire-visible error kinds. The Reason field carries the kind; the HTTP
// layer maps the embedded code straight onto the response status.
const (
	InvalidInput            = "invalid-input"
	Unauthenticated         = "unauthenticated"
	NotFound                = "not-found"
	Conflict                = "conflict"
	PayloadTooLarge         = "payload-too-large"
	TooManyJobs             = "too-many-jobs"
	OrchestratorUnavailable = "orchestrator-unavailable"
	Internal                = "internal"
)

func NewInvalidInput(message string) *apierrors.StatusError {
	return newStatusError(http.StatusBadRequest, InvalidInput, message)
}

func NewInvalidInputf(format string, args ...interface{}) *apierrors.StatusError {
	return newStatusError(http.StatusBadRequest, InvalidInput, fmt.Sprintf(format, args...))
}

func NewUnauthenticated(message string) *apierrors.StatusError {
	return newStatusError(http.StatusUnauthorized, Unauthenticated, message)
}

func NewNotFound(kind, name string) *apierrors.StatusError {
	return newStatusError(http.StatusNotFound, NotFound, fmt.Sprintf("%s %q not found", kind, name))
}

func NewNotFoundWithMessage(message string) *apierrors.StatusError {
	return newStatusError(http.StatusNotFound, NotFound, message)
}

func NewConflict(message string) *apierrors.StatusError {
	return newStatusError(http.StatusConflict, Conflict, message)
}

func NewPayloadTooLarge(message string) *apierrors.StatusError {
	return newStatusError(http.StatusRequestEntityTooLarge, PayloadTooLarge, message)
}

func NewTooManyJobs(active, limit int) *apierrors.StatusError {
	return newStatusError(http.StatusTooManyRequests, TooManyJobs,
		fmt.Sprintf("Too many concurrent jobs (%d/%d)", active, limit))
}

func NewOrchestratorUnavailable() *apierrors.StatusError {
	return newStatusError(http.StatusServiceUnavailable, OrchestratorUnavailable,
		"the cluster orchestrator is not available")
}

func NewInternalError(message string) *apierrors.StatusError {
	return newStatusError(http.StatusInternalServerError, Internal, message)
}

func newStatusError(code int32, reason, message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    code,
		Reason:  metav1.StatusReason(reason),
		Message: message,
	}}
}

func IsNotFound(err error) bool {
	return apierrors.ReasonForError(err) == NotFound
}

func IsConflict(err error) bool {
	return apierrors.ReasonForError(err) == Conflict
}

func IsTooManyJobs(err error) bool {
	return apierrors.ReasonForError(err) == TooManyJobs
}

func IsOrchestratorUnavailable(err error) bool {
	return apierrors.ReasonForError(err) == OrchestratorUnavailable
}
