package app

import (
	"bytes"
	"context"
	"image/jpeg"
	"net/http"
	"strings"
	"testing"

	"cognetex/api/internal/media"
)

func TestRelayHealthCheckAndMethods(t *testing.T) {
	_, h := newTestServer(t, Deps{})

	rr := doJSON(t, h, http.MethodGet, "/api/cloudinary-upload", "", nil)
	if rr.Code != http.StatusOK || decodeResponse(t, rr)["ok"] != true {
		t.Fatalf("expected health check, got %d %s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, h, http.MethodPut, "/api/cloudinary-upload", "", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
	if message := decodeResponse(t, rr)["error"]; message != "Method not allowed." {
		t.Errorf("unexpected message %v", message)
	}
}

func TestRelayRequiresSessionAndUploader(t *testing.T) {
	_, h := newTestServer(t, Deps{})

	rr := doUpload(t, h, "/api/cloudinary-upload", "", "photo.png", testPNG(t, 4, 4), nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}

	token := login(t, h)
	rr = doUpload(t, h, "/api/cloudinary-upload", token, "photo.png", testPNG(t, 4, 4), nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
	if message := decodeResponse(t, rr)["error"]; message != "Missing image CDN credentials." {
		t.Errorf("unexpected message %v", message)
	}
}

func TestRelayChecksCredentialsBeforeReadingBody(t *testing.T) {
	_, h := newTestServer(t, Deps{})
	token := login(t, h)

	rr := doUpload(t, h, "/api/cloudinary-upload", token, "", nil, nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500 before the missing file is noticed, got %d", rr.Code)
	}
	if message := decodeResponse(t, rr)["error"]; message != "Missing image CDN credentials." {
		t.Errorf("unexpected message %v", message)
	}
}

func TestRelayUploadsFile(t *testing.T) {
	var received media.Upload
	uploader := &fakeUploader{uploadFn: func(ctx context.Context, upload media.Upload) (media.Asset, error) {
		received = upload
		return media.Asset{PublicID: "cognetex/team/photo", SecureURL: "https://res.cloudinary.com/demo/image/upload/cognetex/team/photo.png"}, nil
	}}
	_, h := newTestServer(t, Deps{Uploader: uploader})
	token := login(t, h)

	rr := doUpload(t, h, "/api/cloudinary-upload", token, "", nil, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without file, got %d", rr.Code)
	}
	if message := decodeResponse(t, rr)["error"]; message != "Missing image file." {
		t.Errorf("unexpected message %v", message)
	}

	data := testPNG(t, 8, 8)
	rr = doUpload(t, h, "/api/cloudinary-upload", token, "photo.png", data, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	response := decodeResponse(t, rr)
	if response["public_id"] != "cognetex/team/photo" || !strings.HasPrefix(response["secure_url"].(string), "https://") {
		t.Errorf("unexpected response %v", response)
	}
	if received.Folder != media.DefaultFolder || received.Filename != "photo.png" || !bytes.Equal(received.Data, data) {
		t.Errorf("unexpected upload folder=%q filename=%q bytes=%d", received.Folder, received.Filename, len(received.Data))
	}

	doUpload(t, h, "/api/cloudinary-upload", token, "photo.png", data, map[string]string{"folder": "cognetex/misc"})
	if received.Folder != "cognetex/misc" {
		t.Errorf("expected explicit folder, got %q", received.Folder)
	}
}

func TestRelayReportsCDNRejection(t *testing.T) {
	uploader := &fakeUploader{uploadFn: func(ctx context.Context, upload media.Upload) (media.Asset, error) {
		return media.Asset{}, &media.RemoteError{Status: http.StatusBadRequest, Message: "Invalid image file"}
	}}
	_, h := newTestServer(t, Deps{Uploader: uploader})
	token := login(t, h)

	rr := doUpload(t, h, "/api/cloudinary-upload", token, "photo.png", testPNG(t, 4, 4), nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
	if message := decodeResponse(t, rr)["error"]; message != "Invalid image file" {
		t.Errorf("unexpected message %v", message)
	}
}

func TestCropUploadAndAttachToTeamForm(t *testing.T) {
	var received media.Upload
	uploader := &fakeUploader{uploadFn: func(ctx context.Context, upload media.Upload) (media.Asset, error) {
		received = upload
		return media.Asset{PublicID: "cognetex/team/portrait", SecureURL: "https://res.cloudinary.com/demo/image/upload/cognetex/team/portrait.jpg"}, nil
	}}
	_, h := newTestServer(t, Deps{Uploader: uploader})
	token := login(t, h)

	rr := doUpload(t, h, "/api/admin/uploads", token, "portrait.png", testPNG(t, 200, 100), nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("start status = %d body = %s", rr.Code, rr.Body.String())
	}
	response := decodeResponse(t, rr)
	id, _ := response["id"].(string)
	if id == "" || field(response, "upload", "state") != "cropping" {
		t.Fatalf("unexpected start response %v", response)
	}
	base := "/api/admin/uploads/" + id

	rr = doJSON(t, h, http.MethodPost, base+"/upload", token, nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected upload before crop to conflict, got %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodPut, base+"/crop", token, map[string]any{"displayWidth": 400, "displayHeight": 200, "useSuggested": true})
	if rr.Code != http.StatusOK {
		t.Fatalf("crop status = %d body = %s", rr.Code, rr.Body.String())
	}
	if height := field(decodeResponse(t, rr), "upload", "crop", "height"); height != float64(200) {
		t.Errorf("expected crop to fill the display height, got %v", height)
	}

	rr = doJSON(t, h, http.MethodPost, base+"/apply", token, nil)
	if rr.Code != http.StatusOK || field(decodeResponse(t, rr), "upload", "state") != "cropped" {
		t.Fatalf("apply status = %d body = %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodGet, base+"/preview", token, nil)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("preview status = %d type = %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	preview, err := jpeg.Decode(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if bounds := preview.Bounds(); bounds.Dx() >= bounds.Dy() {
		t.Errorf("expected portrait preview, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	rr = doJSON(t, h, http.MethodPost, "/api/admin/team/form/image", token, map[string]string{"uploadId": id})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected attach before upload to conflict, got %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodPost, base+"/upload", token, nil)
	if rr.Code != http.StatusOK || field(decodeResponse(t, rr), "upload", "state") != "uploaded" {
		t.Fatalf("upload status = %d body = %s", rr.Code, rr.Body.String())
	}
	if received.Folder != media.DefaultFolder || received.ContentType != "image/jpeg" {
		t.Errorf("unexpected upload folder=%q type=%q", received.Folder, received.ContentType)
	}

	rr = doJSON(t, h, http.MethodPost, "/api/admin/team/form/image", token, map[string]string{"uploadId": id})
	if rr.Code != http.StatusOK {
		t.Fatalf("attach status = %d body = %s", rr.Code, rr.Body.String())
	}
	image := field(decodeResponse(t, rr), "form", "values", "image")
	if field(image, "kind") != "cdn" || field(image, "value") != "cognetex/team/portrait" {
		t.Errorf("unexpected team image %v", image)
	}

	rr = doJSON(t, h, http.MethodDelete, base, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("discard status = %d", rr.Code)
	}
	rr = doJSON(t, h, http.MethodGet, base, token, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected discarded upload to be gone, got %d", rr.Code)
	}
}

func TestUploadStartRejectsNonImage(t *testing.T) {
	_, h := newTestServer(t, Deps{})
	token := login(t, h)

	rr := doUpload(t, h, "/api/admin/uploads", token, "notes.txt", []byte("plain text"), nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rr.Code, rr.Body.String())
	}
	response := decodeResponse(t, rr)
	if response["error"] != "Could not read image file." || field(response, "details", "upload", "state") != "idle" {
		t.Errorf("unexpected response %v", response)
	}
	if id := field(response, "details", "id"); id != nil {
		t.Errorf("expected no upload id for a dropped pipeline, got %v", id)
	}
}

func TestUploadStartLeavesNothingBehindOnFailure(t *testing.T) {
	svc, h := newTestServer(t, Deps{})
	token := login(t, h)

	for _, data := range [][]byte{[]byte("plain text"), oversizedPNG(t, 12000, 12000)} {
		_ = doUpload(t, h, "/api/admin/uploads", token, "photo.png", data, nil)
	}
	if n := svc.uploads.Len(); n != 0 {
		t.Fatalf("expected failed uploads to be discarded, %d pipelines left", n)
	}

	rr := doUpload(t, h, "/api/admin/uploads", token, "photo.png", testPNG(t, 40, 50), nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if n := svc.uploads.Len(); n != 1 {
		t.Fatalf("expected one live pipeline, got %d", n)
	}
}

func TestUploadStartRejectsOversizedCanvas(t *testing.T) {
	_, h := newTestServer(t, Deps{})
	token := login(t, h)

	rr := doUpload(t, h, "/api/admin/uploads", token, "bomb.png", oversizedPNG(t, 12000, 12000), nil)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d: %s", rr.Code, rr.Body.String())
	}
	response := decodeResponse(t, rr)
	if response["code"] != "IMAGE_TOO_LARGE" || response["error"] != "Image is too large." {
		t.Errorf("unexpected response %v", response)
	}
}

func TestUploadsArePerSession(t *testing.T) {
	_, h := newTestServer(t, Deps{})
	owner := login(t, h)
	other := login(t, h)

	rr := doUpload(t, h, "/api/admin/uploads", owner, "portrait.png", testPNG(t, 20, 20), nil)
	id, _ := decodeResponse(t, rr)["id"].(string)

	rr = doJSON(t, h, http.MethodGet, "/api/admin/uploads/"+id, other, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected another session to be refused, got %d", rr.Code)
	}
	rr = doJSON(t, h, http.MethodGet, "/api/admin/uploads/"+id+"/preview", owner, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected no preview before apply, got %d", rr.Code)
	}
}
