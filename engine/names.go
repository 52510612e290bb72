package engine

// Export names of the VM's C API entry points. The shim exports each C
// function under its C name, so the table below mirrors wren.h.
const (
	FnGetVersionNumber = "wren_get_version_number"
	FnNewVM            = "wren_new_vm"
	FnFreeVM           = "wren_free_vm"
	FnCollectGarbage   = "wren_collect_garbage"
	FnInterpret        = "wren_interpret"
	FnMakeCallHandle   = "wren_make_call_handle"
	FnCall             = "wren_call"
	FnReleaseHandle    = "wren_release_handle"

	FnGetSlotCount   = "wren_get_slot_count"
	FnEnsureSlots    = "wren_ensure_slots"
	FnGetSlotType    = "wren_get_slot_type"
	FnGetSlotBool    = "wren_get_slot_bool"
	FnGetSlotDouble  = "wren_get_slot_double"
	FnGetSlotString  = "wren_get_slot_string"
	FnGetSlotBytes   = "wren_get_slot_bytes"
	FnGetSlotForeign = "wren_get_slot_foreign"
	FnGetSlotHandle  = "wren_get_slot_handle"

	FnSetSlotBool       = "wren_set_slot_bool"
	FnSetSlotDouble     = "wren_set_slot_double"
	FnSetSlotString     = "wren_set_slot_string"
	FnSetSlotBytes      = "wren_set_slot_bytes"
	FnSetSlotNull       = "wren_set_slot_null"
	FnSetSlotHandle     = "wren_set_slot_handle"
	FnSetSlotNewList    = "wren_set_slot_new_list"
	FnSetSlotNewMap     = "wren_set_slot_new_map"
	FnSetSlotNewForeign = "wren_set_slot_new_foreign"

	FnGetListCount   = "wren_get_list_count"
	FnGetListElement = "wren_get_list_element"
	FnSetListElement = "wren_set_list_element"
	FnInsertInList   = "wren_insert_in_list"

	FnGetMapCount       = "wren_get_map_count"
	FnGetMapContainsKey = "wren_get_map_contains_key"
	FnGetMapValue       = "wren_get_map_value"
	FnSetMapValue       = "wren_set_map_value"
	FnRemoveMapValue    = "wren_remove_map_value"

	FnGetVariable = "wren_get_variable"
	FnHasVariable = "wren_has_variable"
	FnHasModule   = "wren_has_module"
	FnAbortFiber  = "wren_abort_fiber"

	FnGetUserData = "wren_get_user_data"
	FnSetUserData = "wren_set_user_data"
)

// requiredExports is checked at instantiation so a mismatched VM binary
// fails fast instead of at first use.
var requiredExports = []string{
	FnGetVersionNumber,
	FnNewVM,
	FnFreeVM,
	FnCollectGarbage,
	FnInterpret,
	FnMakeCallHandle,
	FnCall,
	FnReleaseHandle,
	FnGetSlotCount,
	FnEnsureSlots,
	FnGetSlotType,
	FnGetSlotBool,
	FnGetSlotDouble,
	FnGetSlotString,
	FnGetSlotBytes,
	FnGetSlotForeign,
	FnGetSlotHandle,
	FnSetSlotBool,
	FnSetSlotDouble,
	FnSetSlotString,
	FnSetSlotBytes,
	FnSetSlotNull,
	FnSetSlotHandle,
	FnSetSlotNewList,
	FnSetSlotNewMap,
	FnSetSlotNewForeign,
	FnGetListCount,
	FnGetListElement,
	FnSetListElement,
	FnInsertInList,
	FnGetMapCount,
	FnGetMapContainsKey,
	FnGetMapValue,
	FnSetMapValue,
	FnRemoveMapValue,
	FnGetVariable,
	FnHasVariable,
	FnHasModule,
	FnAbortFiber,
	FnGetUserData,
	FnSetUserData,
}

// HostModule is the import namespace the guest binds its callbacks from.
const HostModule = "wren"

// Import names within the host module.
const (
	ImportReallocate        = "reallocate"
	ImportWrite             = "write"
	ImportError             = "error"
	ImportResolveModule     = "resolve_module"
	ImportLoadModule        = "load_module"
	ImportBindForeignMethod = "bind_foreign_method"
	ImportForeignMethod     = "foreign_method"
	ImportBindForeignClass  = "bind_foreign_class"
	ImportForeignAllocate   = "foreign_allocate"
	ImportForeignFinalize   = "foreign_finalize"
)
