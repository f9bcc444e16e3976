//go:build darwin

package keyinject

/*
#cgo LDFLAGS: -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>
#include <unistd.h>

static int postKeyToSelf(CGKeyCode code) {
	CGEventRef down = CGEventCreateKeyboardEvent(NULL, code, true);
	CGEventRef up = CGEventCreateKeyboardEvent(NULL, code, false);
	if (down == NULL || up == NULL) {
		if (down != NULL) CFRelease(down);
		if (up != NULL) CFRelease(up);
		return -1;
	}
	pid_t pid = getpid();
	CGEventPostToPid(pid, down);
	CGEventPostToPid(pid, up);
	CFRelease(down);
	CFRelease(up);
	return 0;
}
*/
import "C"

import "errors"

func postKeyCode(code uint16) error {
	if C.postKeyToSelf(C.CGKeyCode(code)) != 0 {
		return errors.New("CGEventCreateKeyboardEvent failed")
	}
	return nil
}
