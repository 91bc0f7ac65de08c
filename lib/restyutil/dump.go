package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type Output interface {
	Write(name string, contents string)
}

// DirOutput writes every exchange to its own file.
type DirOutput struct {
	directory string
}

// NewDirOutput empties (or creates) `dir` and returns an output writing to it.
func NewDirOutput(dir string) (DirOutput, error) {
	err := os.RemoveAll(dir)
	if err != nil {
		return DirOutput{}, err
	}
	err = os.MkdirAll(dir, 0700)
	if err != nil {
		return DirOutput{}, err
	}
	return DirOutput{directory: dir}, nil
}

func (o DirOutput) Write(name string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, name), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write http exchange", "name", name, "err", err)
	}
}

// Dump writes every response received by `client`, along with its request,
// to `output`. Names are numbered in the order responses arrive.
func Dump(client *resty.Client, output Output) {
	var counter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := atomic.AddUint64(&counter, 1)
		output.Write(fmt.Sprintf("%04d-%s.txt", id, res.Request.Method), FormatExchange(res))
		return nil
	})
}
