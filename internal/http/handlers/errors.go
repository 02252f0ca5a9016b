// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them. Messages
// are Arabic and safe to show to end users as-is.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "validation_failed",
//	  "message": "الرجاء تعبئة جميع الحقول المطلوبة",
//	  "field": "title"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HussamZG/shakaoy-650/internal/http/middleware"
	"github.com/HussamZG/shakaoy-650/internal/services"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeValidation         = "validation_failed"
	ErrCodeInvalidStatus      = "invalid_status"
	ErrCodeEmptyMessage       = "empty_message"
	ErrCodeMessageTooLong     = "message_too_long"
	ErrCodeAttachmentRejected = "attachment_rejected"
	ErrCodeUploadFailed       = "upload_failed"
	ErrCodeSubmitFailed       = "submit_failed"
	ErrCodeSendFailed         = "send_failed"
	ErrCodeStatusUpdateFailed = "status_update_failed"
	ErrCodeDeleteFailed       = "delete_failed"
	ErrCodeLoginFailed        = "login_failed"
	ErrCodeListFailed         = "list_failed"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
)

// User-facing messages.
const (
	msgRequiredFields    = "الرجاء تعبئة جميع الحقول المطلوبة"
	msgEnterComplaintID  = "الرجاء إدخال رقم الشكوى"
	msgNotFound          = "لم يتم العثور على الشكوى"
	msgNotFoundOrDeleted = "لم يتم العثور على الشكوى أو حذفها"
	msgInvalidStatus     = "حالة غير صالحة"
	msgStatusUpdate      = "خطأ في تحديث حالة الشكوى: "
	msgEmptyMessage      = "لا يمكن إرسال رسالة فارغة"
	msgMessageTooLong    = "الرسالة طويلة جداً"
	msgSendFailed        = "خطأ في إرسال الرسالة"
	msgAttachmentType    = "نوع الملف غير مسموح. يرجى رفع صور (JPG, PNG, GIF) أو PDF"
	msgAttachmentSize    = "الحد الأقصى لحجم الملف 5 ميجابايت"
	msgUploadFailed      = "فشل رفع المرفق: "
	msgSubmitFailed      = "فشل تقديم الشكوى"
	msgDeleteMessages    = "خطأ في حذف رسائل الشكوى: "
	msgDeleteComplaint   = "خطأ في حذف الشكوى: "
	msgDeleteUnexpected  = "حدث خطأ غير متوقع أثناء الحذف"
	msgLoginFailed       = "خطأ في تسجيل الدخول"
	msgLoginRequired     = "الرجاء تسجيل الدخول"
	msgUnauthorizedFor   = "غير مصرح لك بالوصول: "
	msgUnexpected        = "حدث خطأ غير متوقع"
	msgInvalidBody       = "طلب غير صالح"
)

// failService maps a service error to its HTTP status, code and message.
// fallback is the message used for unclassified failures.
func failService(c *gin.Context, err error, fallback string) {
	var fe *services.FieldError
	var ue *services.UnauthorizedError

	switch {
	case errors.As(err, &fe):
		msg := msgRequiredFields
		if fe.Field == "status" {
			msg = msgInvalidStatus
		}
		abort(c, http.StatusBadRequest, ErrorResponse{Code: ErrCodeValidation, Message: msg, Field: fe.Field})
	case errors.Is(err, services.ErrEmptyID):
		abort(c, http.StatusBadRequest, ErrorResponse{Code: ErrCodeValidation, Message: msgEnterComplaintID, Field: "id"})
	case errors.Is(err, services.ErrComplaintNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, msgNotFound)
	case errors.Is(err, services.ErrInvalidStatus):
		fail(c, http.StatusBadRequest, ErrCodeInvalidStatus, msgInvalidStatus)
	case errors.Is(err, services.ErrStatusWrite):
		fail(c, http.StatusInternalServerError, ErrCodeStatusUpdateFailed, msgStatusUpdate+err.Error())
	case errors.Is(err, services.ErrEmptyMessage):
		fail(c, http.StatusBadRequest, ErrCodeEmptyMessage, msgEmptyMessage)
	case errors.Is(err, services.ErrMessageTooLong):
		fail(c, http.StatusBadRequest, ErrCodeMessageTooLong, msgMessageTooLong)
	case errors.Is(err, services.ErrInvalidSender):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgSendFailed)
	case errors.Is(err, services.ErrAttachmentType):
		abort(c, http.StatusBadRequest, ErrorResponse{Code: ErrCodeAttachmentRejected, Message: msgAttachmentType, Field: "attachment"})
	case errors.Is(err, services.ErrAttachmentTooLarge):
		abort(c, http.StatusBadRequest, ErrorResponse{Code: ErrCodeAttachmentRejected, Message: msgAttachmentSize, Field: "attachment"})
	case errors.Is(err, services.ErrUploadFailed):
		fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, msgUploadFailed+err.Error())
	case errors.Is(err, services.ErrSubmitFailed):
		fail(c, http.StatusInternalServerError, ErrCodeSubmitFailed, msgSubmitFailed)
	case errors.Is(err, services.ErrDeleteMessages):
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, msgDeleteMessages+err.Error())
	case errors.Is(err, services.ErrDeleteFailed):
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, msgDeleteComplaint+err.Error())
	case errors.As(err, &ue):
		abort(c, http.StatusUnauthorized, ErrorResponse{Code: ErrCodeUnauthorized, Message: msgUnauthorizedFor + ue.Email, Redirect: services.RedirectLogin})
	case errors.Is(err, services.ErrNoSession):
		abort(c, http.StatusUnauthorized, ErrorResponse{Code: ErrCodeUnauthorized, Message: msgLoginRequired, Redirect: services.RedirectLogin})
	default:
		if fallback == "" {
			fallback = msgUnexpected
		}
		middleware.LoggerFrom(c).Error().Err(err).Msg("unclassified service error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, fallback)
	}
}
