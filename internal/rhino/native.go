//go:build cgo

package rhino

/*
#cgo linux LDFLAGS: -ldl
#cgo darwin LDFLAGS: -ldl

#include <stdbool.h>
#include <stdint.h>
#include <stdlib.h>

#if defined(_WIN32) || defined(_WIN64)
#include <windows.h>

static void *rhino_dlopen(const char *path) { return (void *) LoadLibraryA(path); }
static void *rhino_dlsym(void *lib, const char *name) { return (void *) GetProcAddress((HMODULE) lib, name); }
static const char *rhino_dlerror(void) { return NULL; }
static void rhino_dlclose(void *lib) { FreeLibrary((HMODULE) lib); }
#else
#include <dlfcn.h>

static void *rhino_dlopen(const char *path) { return dlopen(path, RTLD_NOW); }
static void *rhino_dlsym(void *lib, const char *name) { return dlsym(lib, name); }
static const char *rhino_dlerror(void) { return dlerror(); }
static void rhino_dlclose(void *lib) { dlclose(lib); }
#endif

typedef void (*set_sdk_fn)(const char *);
typedef int32_t (*init_fn)(const char *, const char *, const char *, float, float, bool, void **);
typedef void (*delete_fn)(void *);
typedef int32_t (*process_fn)(void *, const int16_t *, bool *);
typedef int32_t (*is_understood_fn)(const void *, bool *);
typedef int32_t (*get_intent_fn)(const void *, const char **, int32_t *, const char ***, const char ***);
typedef int32_t (*free_slots_fn)(const void *, const char **, const char **);
typedef int32_t (*reset_fn)(void *);
typedef int32_t (*context_info_fn)(const void *, const char **);
typedef const char *(*version_fn)(void);
typedef int32_t (*int_fn)(void);
typedef int32_t (*get_error_stack_fn)(char ***, int32_t *);
typedef void (*free_error_stack_fn)(char **);

static void call_set_sdk(void *f, const char *sdk) { ((set_sdk_fn) f)(sdk); }

static int32_t call_init(
	void *f,
	const char *access_key,
	const char *model_path,
	const char *context_path,
	float sensitivity,
	float endpoint_duration_sec,
	bool require_endpoint,
	void **object) {
	return ((init_fn) f)(access_key, model_path, context_path, sensitivity, endpoint_duration_sec, require_endpoint, object);
}

static void call_delete(void *f, void *object) { ((delete_fn) f)(object); }

static int32_t call_process(void *f, void *object, const int16_t *pcm, bool *is_finalized) {
	return ((process_fn) f)(object, pcm, is_finalized);
}

static int32_t call_is_understood(void *f, void *object, bool *is_understood) {
	return ((is_understood_fn) f)(object, is_understood);
}

static int32_t call_get_intent(void *f, void *object, const char **intent, int32_t *num_slots, const char ***slots, const char ***values) {
	return ((get_intent_fn) f)(object, intent, num_slots, slots, values);
}

static int32_t call_free_slots(void *f, void *object, const char **slots, const char **values) {
	return ((free_slots_fn) f)(object, slots, values);
}

static int32_t call_reset(void *f, void *object) { return ((reset_fn) f)(object); }

static int32_t call_context_info(void *f, void *object, const char **info) {
	return ((context_info_fn) f)(object, info);
}

static const char *call_version(void *f) { return ((version_fn) f)(); }

static int32_t call_int(void *f) { return ((int_fn) f)(); }

static int32_t call_get_error_stack(void *f, char ***stack, int32_t *depth) {
	return ((get_error_stack_fn) f)(stack, depth);
}

static void call_free_error_stack(void *f, char **stack) { ((free_error_stack_fn) f)(stack); }

static const char *string_at(const char **array, int32_t i) { return array[i]; }
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"
)

// NativeAvailable reports whether the dynamic loader backend is compiled in.
func NativeAvailable() bool { return true }

type nativeLibrary struct {
	handle unsafe.Pointer

	setSDK         unsafe.Pointer
	init           unsafe.Pointer
	delete         unsafe.Pointer
	process        unsafe.Pointer
	isUnderstood   unsafe.Pointer
	getIntent      unsafe.Pointer
	freeSlots      unsafe.Pointer
	reset          unsafe.Pointer
	contextInfo    unsafe.Pointer
	version        unsafe.Pointer
	frameLength    unsafe.Pointer
	sampleRate     unsafe.Pointer
	getErrorStack  unsafe.Pointer
	freeErrorStack unsafe.Pointer
}

func loadNativeLibrary(path string) (Library, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	handle := C.rhino_dlopen(cPath)
	if handle == nil {
		if msg := C.rhino_dlerror(); msg != nil {
			return nil, errors.New(C.GoString(msg))
		}
		return nil, errors.New("failed to open shared library")
	}

	lib := &nativeLibrary{handle: handle}
	symbols := []struct {
		name string
		dst  *unsafe.Pointer
	}{
		{"pv_set_sdk", &lib.setSDK},
		{"pv_rhino_init", &lib.init},
		{"pv_rhino_delete", &lib.delete},
		{"pv_rhino_process", &lib.process},
		{"pv_rhino_is_understood", &lib.isUnderstood},
		{"pv_rhino_get_intent", &lib.getIntent},
		{"pv_rhino_free_slots_and_values", &lib.freeSlots},
		{"pv_rhino_reset", &lib.reset},
		{"pv_rhino_context_info", &lib.contextInfo},
		{"pv_rhino_version", &lib.version},
		{"pv_rhino_frame_length", &lib.frameLength},
		{"pv_sample_rate", &lib.sampleRate},
		{"pv_get_error_stack", &lib.getErrorStack},
		{"pv_free_error_stack", &lib.freeErrorStack},
	}
	for _, sym := range symbols {
		cName := C.CString(sym.name)
		ptr := C.rhino_dlsym(handle, cName)
		C.free(unsafe.Pointer(cName))
		if ptr == nil {
			C.rhino_dlclose(handle)
			return nil, fmt.Errorf("missing symbol %s", sym.name)
		}
		*sym.dst = ptr
	}
	return lib, nil
}

func (l *nativeLibrary) SetSDK(name string) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	C.call_set_sdk(l.setSDK, cName)
}

func (l *nativeLibrary) Init(p InitParams) (Instance, Status) {
	cAccessKey := C.CString(p.AccessKey)
	cModelPath := C.CString(p.ModelPath)
	cContextPath := C.CString(p.ContextPath)
	defer C.free(unsafe.Pointer(cAccessKey))
	defer C.free(unsafe.Pointer(cModelPath))
	defer C.free(unsafe.Pointer(cContextPath))

	var object unsafe.Pointer
	status := Status(C.call_init(
		l.init,
		cAccessKey,
		cModelPath,
		cContextPath,
		C.float(p.Sensitivity),
		C.float(p.EndpointDurationSec),
		C.bool(p.RequireEndpoint),
		&object,
	))
	if status != StatusSuccess {
		return nil, status
	}
	return &nativeInstance{lib: l, object: object}, StatusSuccess
}

func (l *nativeLibrary) Version() string {
	return C.GoString(C.call_version(l.version))
}

func (l *nativeLibrary) FrameLength() int {
	return int(C.call_int(l.frameLength))
}

func (l *nativeLibrary) SampleRate() int {
	return int(C.call_int(l.sampleRate))
}

func (l *nativeLibrary) ErrorStack() ([]string, Status) {
	var (
		stack **C.char
		depth C.int32_t
	)
	status := Status(C.call_get_error_stack(l.getErrorStack, &stack, &depth))
	if status != StatusSuccess {
		return nil, status
	}
	defer C.call_free_error_stack(l.freeErrorStack, stack)

	lines := make([]string, 0, int(depth))
	for i := C.int32_t(0); i < depth; i++ {
		lines = append(lines, C.GoString(C.string_at(stack, i)))
	}
	return lines, StatusSuccess
}

type nativeInstance struct {
	lib    *nativeLibrary
	object unsafe.Pointer
}

func (i *nativeInstance) Process(pcm []int16) (bool, Status) {
	if len(pcm) == 0 {
		return false, StatusInvalidArgument
	}
	var finalized C.bool
	status := Status(C.call_process(
		i.lib.process,
		i.object,
		(*C.int16_t)(unsafe.Pointer(&pcm[0])),
		&finalized,
	))
	return bool(finalized), status
}

func (i *nativeInstance) IsUnderstood() (bool, Status) {
	var understood C.bool
	status := Status(C.call_is_understood(i.lib.isUnderstood, i.object, &understood))
	return bool(understood), status
}

func (i *nativeInstance) GetIntent() (string, map[string]string, Status) {
	var (
		intent   *C.char
		numSlots C.int32_t
		keys     **C.char
		values   **C.char
	)
	status := Status(C.call_get_intent(i.lib.getIntent, i.object, &intent, &numSlots, &keys, &values))
	if status != StatusSuccess {
		return "", nil, status
	}

	name := C.GoString(intent)
	slots := make(map[string]string, int(numSlots))
	for n := C.int32_t(0); n < numSlots; n++ {
		slots[C.GoString(C.string_at(keys, n))] = C.GoString(C.string_at(values, n))
	}

	if status := Status(C.call_free_slots(i.lib.freeSlots, i.object, keys, values)); status != StatusSuccess {
		return "", nil, status
	}
	return name, slots, StatusSuccess
}

func (i *nativeInstance) Reset() Status {
	return Status(C.call_reset(i.lib.reset, i.object))
}

func (i *nativeInstance) ContextInfo() (string, Status) {
	var info *C.char
	status := Status(C.call_context_info(i.lib.contextInfo, i.object, &info))
	if status != StatusSuccess {
		return "", status
	}
	return C.GoString(info), StatusSuccess
}

func (i *nativeInstance) Delete() {
	if i.object == nil {
		return
	}
	C.call_delete(i.lib.delete, i.object)
	i.object = nil
}
