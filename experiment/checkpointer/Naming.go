package checkpointer

import (
	"fmt"
	"time"
)

// FilenameEnumerator returns a function which generates filenames with
// an integer counter suffix. Each call to the returned function
// increments the counter, so consecutive calls produce file1.bin,
// file2.bin, ..., fileK.bin. The filename parameter is the full
// filename with its path, while the extension parameter determines the
// file extension.
func FilenameEnumerator(start int, filename, extension string) func() string {
	i := start
	return func() string {
		i++
		return fmt.Sprintf("%v%v%v", filename, i, extension)
	}
}

// FileTimer returns a function which will append to a filename the
// number of nanoseconds since January 1, 1970.
func FileTimer(filename, extension string) func() string {
	return func() string {
		return fmt.Sprintf("%v-%v%v", filename, time.Now().UnixNano(),
			extension)
	}
}
