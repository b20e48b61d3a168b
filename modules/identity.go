package modules

import (
	"fmt"
	"os"
	"time"
)

// FileIdentity captures what the on-disk source of a module looked like at
// load time. A mismatch on a later stat means the file was rebuilt or
// replaced.
type FileIdentity struct {
	Dev     uint64
	Ino     uint64
	Size    int64
	ModTime time.Time
}

func identityOf(fi os.FileInfo) FileIdentity {
	dev, ino := devIno(fi.Sys())
	return FileIdentity{
		Dev:     dev,
		Ino:     ino,
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
	}
}

// Equal reports whether both identities describe the same file state.
func (i FileIdentity) Equal(other FileIdentity) bool {
	return i.Dev == other.Dev && i.Ino == other.Ino &&
		i.Size == other.Size && i.ModTime.Equal(other.ModTime)
}

func (i FileIdentity) String() string {
	return fmt.Sprintf("dev=%d ino=%d size=%d mtime=%s", i.Dev, i.Ino, i.Size, i.ModTime.Format(time.RFC3339Nano))
}
