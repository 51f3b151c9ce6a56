// Package storage grava arquivos enviados (avatares e materiais) em disco e
// monta a URL pública servida pelo backend em /files/.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	MaxAvatarBytes   = 2 << 20
	MaxResourceBytes = 50 << 20
)

var (
	ErrTooLarge    = errors.New("arquivo muito grande")
	ErrNotImage    = errors.New("o arquivo precisa ser uma imagem")
	ErrInvalidPath = errors.New("caminho inválido")
)

type Local struct {
	Dir       string
	PublicURL string
}

func NewLocal(dir, publicURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return &Local{Dir: dir, PublicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Put grava r em key (caminho relativo com "/"), limitado a max bytes.
// Devolve o número de bytes gravados.
func (l *Local) Put(key string, r io.Reader, max int64) (int64, error) {
	full, err := l.resolve(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, err
	}
	tmp := full + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, io.LimitReader(r, max+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > max {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	return n, nil
}

// Delete ignora arquivo inexistente.
func (l *Local) Delete(key string) error {
	full, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) URL(key string) string {
	return l.PublicURL + "/" + key
}

func (l *Local) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(l.Dir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Extensões aceitas por tipo detectado; o nome enviado pelo cliente nunca
// decide a extensão servida.
var (
	imageExts = map[string]string{
		"image/png":  "png",
		"image/jpeg": "jpg",
		"image/gif":  "gif",
		"image/webp": "webp",
	}
	resourceExts = map[string]string{
		"application/pdf": "pdf",
		"video/mp4":       "mp4",
		"video/webm":      "webm",
		"audio/mpeg":      "mp3",
		"audio/wave":      "wav",
		"application/ogg": "ogg",
	}
)

// Sniff detecta o tipo pelos primeiros 512 bytes e devolve um reader com o
// conteúdo completo.
func Sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]
	ct, _, _ := mime.ParseMediaType(http.DetectContentType(head))
	return ct, io.MultiReader(bytes.NewReader(head), r), nil
}

// AvatarKey: um avatar por usuário, "<user>/avatar.<ext>". contentType vem de Sniff.
func AvatarKey(userID, contentType string) (string, error) {
	ext, ok := imageExts[contentType]
	if !ok {
		return "", ErrNotImage
	}
	return userID + "/avatar." + ext, nil
}

// ResourceKey: "<user>/<unix_ms>.<ext>"; tipos fora da lista viram .bin.
func ResourceKey(userID, contentType string, now time.Time) string {
	return fmt.Sprintf("%s/%d.%s", userID, now.UnixMilli(), Ext(contentType))
}

// ContentType é o tipo servido para a extensão gravada; desconhecidas saem como binário.
func ContentType(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	for _, m := range []map[string]string{imageExts, resourceExts} {
		for ct, e := range m {
			if e == ext {
				return ct
			}
		}
	}
	return "application/octet-stream"
}

func Ext(contentType string) string {
	if e, ok := imageExts[contentType]; ok {
		return e
	}
	if e, ok := resourceExts[contentType]; ok {
		return e
	}
	return "bin"
}

// Handler serve os arquivos de Dir. Diretórios não são listados; tudo sai com
// nosniff e CSP restrita, e materiais vão como anexo.
func (l *Local) Handler() http.Handler {
	fs := http.FileServer(http.Dir(l.Dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") || strings.HasSuffix(r.URL.Path, ".tmp") {
			http.NotFound(w, r)
			return
		}
		full, err := l.resolve(r.URL.Path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if fi, err := os.Stat(full); err != nil || fi.IsDir() {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", ContentType(path.Ext(r.URL.Path)))
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
		if !strings.HasPrefix(path.Base(r.URL.Path), "avatar.") {
			w.Header().Set("Content-Disposition", "attachment")
		}
		fs.ServeHTTP(w, r)
	})
}

// HumanSize: menos de 1 MB (após arredondar a 2 casas) em "N KB", senão "N.NN MB".
func HumanSize(bytes int64) string {
	mb := fmt.Sprintf("%.2f", float64(bytes)/(1024*1024))
	if v, _ := strconv.ParseFloat(mb, 64); v < 1 {
		return fmt.Sprintf("%.0f KB", math.Round(float64(bytes)/1024))
	}
	return mb + " MB"
}

// ResourceType classifica o upload para o catálogo de materiais.
func ResourceType(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case ct == "application/pdf":
		return "PDF"
	case strings.HasPrefix(ct, "video/"):
		return "Vídeo"
	case strings.HasPrefix(ct, "audio/"), ct == "application/ogg":
		return "Áudio"
	}
	return "Link"
}
