package symbols

import (
	"fmt"
	"strings"

	"strata/internal/engine/types"
)

// Builtin functions with known signatures, written as declared in the runtime
// documentation. A `= ?` default marks an optional parameter.
var builtinFunctionSigs = []string{
	"strlen(string $string): int",
	"count(Countable|array $value, int $mode = ?): int",
	"sizeof(Countable|array $value, int $mode = ?): int",
	"in_array(mixed $needle, array $haystack, bool $strict = ?): bool",
	"array_key_exists(string|int|float|bool|resource|null $key, array $array): bool",
	"array_keys(array $array, mixed $filter_value = ?, bool $strict = ?): array",
	"array_values(array $array): array",
	"array_merge(array ...$arrays): array",
	"array_map(?callable $callback, array $array, array ...$arrays): array",
	"array_filter(array $array, ?callable $callback = ?, int $mode = ?): array",
	"array_reduce(array $array, callable $callback, mixed $initial = ?): mixed",
	"array_slice(array $array, int $offset, ?int $length = ?, bool $preserve_keys = ?): array",
	"array_splice(array &$array, int $offset, ?int $length = ?, mixed $replacement = ?): array",
	"array_search(mixed $needle, array $haystack, bool $strict = ?): int|string|false",
	"array_unique(array $array, int $flags = ?): array",
	"array_flip(array $array): array",
	"array_reverse(array $array, bool $preserve_keys = ?): array",
	"array_combine(array $keys, array $values): array",
	"array_fill(int $start_index, int $count, mixed $value): array",
	"array_fill_keys(array $keys, mixed $value): array",
	"array_column(array $array, int|string|null $column_key, int|string|null $index_key = ?): array",
	"array_key_first(array $array): int|string|null",
	"array_key_last(array $array): int|string|null",
	"array_push(array &$array, mixed ...$values): int",
	"array_pop(array &$array): mixed",
	"array_shift(array &$array): mixed",
	"array_unshift(array &$array, mixed ...$values): int",
	"array_sum(array $array): int|float",
	"array_product(array $array): int|float",
	"array_diff(array $array, array ...$arrays): array",
	"array_intersect(array $array, array ...$arrays): array",
	"array_diff_key(array $array, array ...$arrays): array",
	"array_intersect_key(array $array, array ...$arrays): array",
	"array_walk(array &$array, callable $callback, mixed $arg = ?): bool",
	"array_chunk(array $array, int $length, bool $preserve_keys = ?): array",
	"array_pad(array $array, int $length, mixed $value): array",
	"array_is_list(array $array): bool",
	"range(string|int|float $start, string|int|float $end, int|float $step = ?): array",
	"compact(array|string $var_name, array|string ...$var_names): array",
	"extract(array &$array, int $flags = ?, string $prefix = ?): int",
	"sort(array &$array, int $flags = ?): bool",
	"rsort(array &$array, int $flags = ?): bool",
	"usort(array &$array, callable $callback): bool",
	"uasort(array &$array, callable $callback): bool",
	"uksort(array &$array, callable $callback): bool",
	"ksort(array &$array, int $flags = ?): bool",
	"krsort(array &$array, int $flags = ?): bool",
	"asort(array &$array, int $flags = ?): bool",
	"arsort(array &$array, int $flags = ?): bool",
	"implode(array|string $separator, ?array $array = ?): string",
	"join(array|string $separator, ?array $array = ?): string",
	"explode(string $separator, string $string, int $limit = ?): array",
	"str_replace(array|string $search, array|string $replace, string|array $subject, int &$count = ?): string|array",
	"str_contains(string $haystack, string $needle): bool",
	"str_starts_with(string $haystack, string $needle): bool",
	"str_ends_with(string $haystack, string $needle): bool",
	"str_repeat(string $string, int $times): string",
	"str_pad(string $string, int $length, string $pad_string = ?, int $pad_type = ?): string",
	"str_split(string $string, int $length = ?): array",
	"strpos(string $haystack, string $needle, int $offset = ?): int|false",
	"stripos(string $haystack, string $needle, int $offset = ?): int|false",
	"strrpos(string $haystack, string $needle, int $offset = ?): int|false",
	"substr(string $string, int $offset, ?int $length = ?): string",
	"substr_count(string $haystack, string $needle, int $offset = ?, ?int $length = ?): int",
	"strtolower(string $string): string",
	"strtoupper(string $string): string",
	"ucfirst(string $string): string",
	"lcfirst(string $string): string",
	"ucwords(string $string, string $separators = ?): string",
	"trim(string $string, string $characters = ?): string",
	"ltrim(string $string, string $characters = ?): string",
	"rtrim(string $string, string $characters = ?): string",
	"sprintf(string $format, mixed ...$values): string",
	"vsprintf(string $format, array $values): string",
	"printf(string $format, mixed ...$values): int",
	"number_format(float $num, int $decimals = ?, ?string $decimal_separator = ?, ?string $thousands_separator = ?): string",
	"nl2br(string $string, bool $use_xhtml = ?): string",
	"htmlspecialchars(string $string, int $flags = ?, ?string $encoding = ?, bool $double_encode = ?): string",
	"html_entity_decode(string $string, int $flags = ?, ?string $encoding = ?): string",
	"strip_tags(string $string, array|string|null $allowed_tags = ?): string",
	"addslashes(string $string): string",
	"stripslashes(string $string): string",
	"strcmp(string $string1, string $string2): int",
	"strcasecmp(string $string1, string $string2): int",
	"strrev(string $string): string",
	"wordwrap(string $string, int $width = ?, string $break = ?, bool $cut_long_words = ?): string",
	"mb_strlen(string $string, ?string $encoding = ?): int",
	"mb_substr(string $string, int $start, ?int $length = ?, ?string $encoding = ?): string",
	"mb_strtolower(string $string, ?string $encoding = ?): string",
	"mb_strtoupper(string $string, ?string $encoding = ?): string",
	"preg_match(string $pattern, string $subject, array &$matches = ?, int $flags = ?, int $offset = ?): int|false",
	"preg_match_all(string $pattern, string $subject, array &$matches = ?, int $flags = ?, int $offset = ?): int|false",
	"preg_replace(string|array $pattern, string|array $replacement, string|array $subject, int $limit = ?, int &$count = ?): string|array|null",
	"preg_replace_callback(string|array $pattern, callable $callback, string|array $subject, int $limit = ?, int &$count = ?, int $flags = ?): string|array|null",
	"preg_split(string $pattern, string $subject, int $limit = ?, int $flags = ?): array|false",
	"preg_quote(string $str, ?string $delimiter = ?): string",
	"json_encode(mixed $value, int $flags = ?, int $depth = ?): string|false",
	"json_decode(string $json, ?bool $associative = ?, int $depth = ?, int $flags = ?): mixed",
	"serialize(mixed $value): string",
	"unserialize(string $data, array $options = ?): mixed",
	"var_dump(mixed $value, mixed ...$values): void",
	"var_export(mixed $value, bool $return = ?): ?string",
	"print_r(mixed $value, bool $return = ?): string|true",
	"is_null(mixed $value): bool",
	"is_int(mixed $value): bool",
	"is_integer(mixed $value): bool",
	"is_float(mixed $value): bool",
	"is_string(mixed $value): bool",
	"is_bool(mixed $value): bool",
	"is_array(mixed $value): bool",
	"is_object(mixed $value): bool",
	"is_numeric(mixed $value): bool",
	"is_callable(mixed $value, bool $syntax_only = ?, string &$callable_name = ?): bool",
	"is_iterable(mixed $value): bool",
	"is_countable(mixed $value): bool",
	"is_scalar(mixed $value): bool",
	"is_resource(mixed $value): bool",
	"is_a(mixed $object_or_class, string $class, bool $allow_string = ?): bool",
	"is_subclass_of(mixed $object_or_class, string $class, bool $allow_string = ?): bool",
	"intval(mixed $value, int $base = ?): int",
	"floatval(mixed $value): float",
	"strval(mixed $value): string",
	"boolval(mixed $value): bool",
	"settype(mixed &$var, string $type): bool",
	"gettype(mixed $value): string",
	"get_debug_type(mixed $value): string",
	"get_class(object $object = ?): string",
	"get_parent_class(object|string $object_or_class = ?): string|false",
	"get_object_vars(object $object): array",
	"get_called_class(): string",
	"class_exists(string $class, bool $autoload = ?): bool",
	"interface_exists(string $interface, bool $autoload = ?): bool",
	"enum_exists(string $enum, bool $autoload = ?): bool",
	"function_exists(string $function): bool",
	"method_exists(object|string $object_or_class, string $method): bool",
	"property_exists(object|string $object_or_class, string $property): bool",
	"defined(string $constant_name): bool",
	"define(string $constant_name, mixed $value, bool $case_insensitive = ?): bool",
	"constant(string $name): mixed",
	"call_user_func(callable $callback, mixed ...$args): mixed",
	"call_user_func_array(callable $callback, array $args): mixed",
	"func_get_args(): array",
	"func_num_args(): int",
	"abs(int|float $num): int|float",
	"ceil(int|float $num): float",
	"floor(int|float $num): float",
	"round(int|float $num, int $precision = ?, int $mode = ?): float",
	"sqrt(float $num): float",
	"pow(mixed $num, mixed $exponent): int|float|object",
	"intdiv(int $num1, int $num2): int",
	"fmod(float $num1, float $num2): float",
	"max(mixed $value, mixed ...$values): mixed",
	"min(mixed $value, mixed ...$values): mixed",
	"rand(int $min = ?, int $max = ?): int",
	"mt_rand(int $min = ?, int $max = ?): int",
	"random_int(int $min, int $max): int",
	"random_bytes(int $length): string",
	"time(): int",
	"microtime(bool $as_float = ?): string|float",
	"hrtime(bool $as_number = ?): array|int|float|false",
	"date(string $format, ?int $timestamp = ?): string",
	"mktime(int $hour, ?int $minute = ?, ?int $second = ?, ?int $month = ?, ?int $day = ?, ?int $year = ?): int|false",
	"strtotime(string $datetime, ?int $baseTimestamp = ?): int|false",
	"checkdate(int $month, int $day, int $year): bool",
	"sleep(int $seconds): int",
	"usleep(int $microseconds): void",
	"file_get_contents(string $filename, bool $use_include_path = ?, mixed $context = ?, int $offset = ?, ?int $length = ?): string|false",
	"file_put_contents(string $filename, mixed $data, int $flags = ?, mixed $context = ?): int|false",
	"file_exists(string $filename): bool",
	"is_file(string $filename): bool",
	"is_dir(string $filename): bool",
	"is_readable(string $filename): bool",
	"is_writable(string $filename): bool",
	"mkdir(string $directory, int $permissions = ?, bool $recursive = ?, mixed $context = ?): bool",
	"unlink(string $filename, mixed $context = ?): bool",
	"rename(string $from, string $to, mixed $context = ?): bool",
	"copy(string $from, string $to, mixed $context = ?): bool",
	"basename(string $path, string $suffix = ?): string",
	"dirname(string $path, int $levels = ?): string",
	"realpath(string $path): string|false",
	"pathinfo(string $path, int $flags = ?): array|string",
	"file(string $filename, int $flags = ?, mixed $context = ?): array|false",
	"fopen(string $filename, string $mode, bool $use_include_path = ?, mixed $context = ?): resource|false",
	"fclose(resource $stream): bool",
	"fwrite(resource $stream, string $data, ?int $length = ?): int|false",
	"fread(resource $stream, int $length): string|false",
	"fgets(resource $stream, ?int $length = ?): string|false",
	"feof(resource $stream): bool",
	"glob(string $pattern, int $flags = ?): array|false",
	"scandir(string $directory, int $sorting_order = ?, mixed $context = ?): array|false",
	"getenv(?string $name = ?, bool $local_only = ?): array|string|false",
	"putenv(string $assignment): bool",
	"ini_get(string $option): string|false",
	"ini_set(string $option, string|int|float|bool|null $value): string|false",
	"error_reporting(?int $error_level = ?): int",
	"trigger_error(string $message, int $error_level = ?): bool",
	"set_error_handler(?callable $callback, int $error_levels = ?): mixed",
	"set_exception_handler(?callable $callback): mixed",
	"error_log(string $message, int $message_type = ?, ?string $destination = ?, ?string $additional_headers = ?): bool",
	"header(string $header, bool $replace = ?, int $response_code = ?): void",
	"headers_sent(string &$filename = ?, int &$line = ?): bool",
	"http_response_code(int $response_code = ?): int|bool",
	"session_start(array $options = ?): bool",
	"ob_start(mixed $callback = ?, int $chunk_size = ?, int $flags = ?): bool",
	"ob_get_clean(): string|false",
	"md5(string $string, bool $binary = ?): string",
	"sha1(string $string, bool $binary = ?): string",
	"crc32(string $string): int",
	"hash(string $algo, string $data, bool $binary = ?, array $options = ?): string",
	"base64_encode(string $string): string",
	"base64_decode(string $string, bool $strict = ?): string|false",
	"bin2hex(string $string): string",
	"urlencode(string $string): string",
	"urldecode(string $string): string",
	"rawurlencode(string $string): string",
	"http_build_query(array|object $data, string $numeric_prefix = ?, ?string $arg_separator = ?, int $encoding_type = ?): string",
	"parse_url(string $url, int $component = ?): int|string|array|null|false",
	"parse_str(string $string, array &$result): void",
	"uniqid(string $prefix = ?, bool $more_entropy = ?): string",
	"password_hash(string $password, string|int|null $algo, array $options = ?): string",
	"password_verify(string $password, string $hash): bool",
	"spl_object_id(object $object): int",
	"spl_object_hash(object $object): string",
	"spl_autoload_register(?callable $callback = ?, bool $throw = ?, bool $prepend = ?): bool",
	"iterator_to_array(Traversable|array $iterator, bool $preserve_keys = ?): array",
	"array_walk_recursive(array &$array, callable $callback, mixed $arg = ?): bool",
	"version_compare(string $version1, string $version2, ?string $operator = ?): int|bool",
	"phpversion(?string $extension = ?): string|false",
	"memory_get_usage(bool $real_usage = ?): int",
	"gc_collect_cycles(): int",
	"debug_backtrace(int $options = ?, int $limit = ?): array",
	"array_rand(array $array, int $num = ?): int|string|array",
	"shuffle(array &$array): bool",
	"end(array|object &$array): mixed",
	"reset(array|object &$array): mixed",
	"current(array|object $array): mixed",
	"key(array|object $array): int|string|null",
	"next(array|object &$array): mixed",
	"get_defined_vars(): array",
	"func_get_arg(int $position): mixed",
	"assert(mixed $assertion, mixed $description = ?): bool",
	"filter_var(mixed $value, int $filter = ?, array|int $options = ?): mixed",
	"ctype_digit(mixed $text): bool",
	"ctype_alpha(mixed $text): bool",
	"levenshtein(string $string1, string $string2, int $insertion_cost = ?, int $replacement_cost = ?, int $deletion_cost = ?): int",
	"similar_text(string $string1, string $string2, float &$percent = ?): int",
	"array_any(array $array, callable $callback): bool",
	"array_all(array $array, callable $callback): bool",
	"array_find(array $array, callable $callback): mixed",
}

// Builtin functions registered by name only.
var builtinFunctionNames = []string{
	"array_change_key_case", "array_count_values", "array_diff_assoc", "array_diff_ukey",
	"array_intersect_assoc", "array_merge_recursive", "array_multisort", "array_replace",
	"array_replace_recursive", "array_udiff", "array_uintersect", "natsort", "natcasesort",
	"prev", "pos", "str_ireplace", "substr_replace", "strstr", "stristr",
	"strrchr", "strncmp", "strncasecmp", "strnatcmp", "strnatcasecmp", "strtr", "str_word_count",
	"chunk_split", "nl_langinfo", "chr", "ord", "lcg_value", "mt_srand", "srand",
	"mt_getrandmax", "getrandmax", "base_convert", "bindec", "decbin", "dechex", "hexdec",
	"octdec", "decoct", "deg2rad", "rad2deg", "exp", "log", "log10", "log2", "sin", "cos",
	"tan", "asin", "acos", "atan", "atan2", "pi", "is_nan", "is_finite", "is_infinite",
	"hypot", "fdiv", "mb_strpos", "mb_str_split", "mb_convert_case",
	"mb_convert_encoding", "mb_internal_encoding", "mb_strwidth", "mb_str_pad", "iconv",
	"iconv_strlen", "utf8_encode", "utf8_decode", "htmlentities", "quotemeta", "addcslashes",
	"stripcslashes", "quoted_printable_encode", "convert_uuencode", "soundex", "metaphone",
	"similar_text", "localeconv", "setlocale", "nl2br", "sscanf", "vprintf", "fprintf",
	"vfprintf", "number_format", "gmdate", "idate", "getdate", "localtime", "strftime",
	"gmmktime", "date_default_timezone_set", "date_default_timezone_get", "date_create",
	"date_diff", "date_add", "date_format", "fputs", "fflush", "ftell", "fseek", "rewind",
	"ftruncate", "flock", "fgetcsv", "fputcsv", "fgetc", "fpassthru", "readfile", "tmpfile",
	"tempnam", "sys_get_temp_dir", "touch", "chmod", "chown", "filemtime", "filesize",
	"fileperms", "is_link", "is_executable", "rmdir", "opendir", "readdir", "closedir",
	"getcwd", "chdir", "stream_context_create", "stream_get_contents", "proc_open",
	"proc_close", "exec", "shell_exec", "system", "passthru", "escapeshellarg",
	"escapeshellcmd", "popen", "pclose", "curl_init", "curl_setopt", "curl_setopt_array",
	"curl_exec", "curl_close", "curl_error", "curl_errno", "curl_getinfo", "json_last_error",
	"json_last_error_msg", "libxml_use_internal_errors", "simplexml_load_string",
	"simplexml_load_file", "mail", "session_id", "session_destroy", "session_regenerate_id",
	"setcookie", "headers_list", "header_remove", "ob_get_contents", "ob_end_clean",
	"ob_end_flush", "ob_get_level", "flush", "set_time_limit", "ignore_user_abort",
	"register_shutdown_function", "restore_error_handler", "restore_exception_handler",
	"error_get_last", "debug_print_backtrace", "get_class_methods", "get_class_vars",
	"class_implements", "class_parents", "class_uses", "trait_exists", "get_declared_classes",
	"is_a", "iterator_count", "iterator_apply", "spl_autoload_unregister", "array_key_exists",
	"gethostname", "gethostbyname", "php_uname", "php_sapi_name", "sys_getloadavg",
	"memory_get_peak_usage", "getmypid", "uniqid", "lcg_value", "openssl_encrypt",
	"openssl_decrypt", "openssl_random_pseudo_bytes", "hash_hmac", "hash_equals",
	"password_needs_rehash", "crypt", "hex2bin", "ip2long", "long2ip", "inet_pton",
	"inet_ntop", "checkdnsrr", "usleep",
	"forward_static_call", "forward_static_call_array",
	"get_resource_type", "is_long", "is_double", "array_key_last", "str_word_count",
	"array_flip", "ctype_alnum", "ctype_upper", "ctype_lower", "ctype_space", "ctype_punct",
	"ctype_xdigit", "gzcompress", "gzuncompress", "gzencode", "gzdecode", "mb_substr_count",
	"preg_grep", "preg_last_error", "preg_last_error_msg", "spl_autoload_functions",
	"apcu_fetch", "apcu_store", "opcache_get_status", "fsockopen", "socket_create",
	"array_product", "str_getcsv", "nl2br", "highlight_string", "php_strip_whitespace",
	"eval",
}

// Functions whose only effect is their result. Calling them as a statement is useless.
var pureFunctions = map[string]bool{}

func init() {
	for _, name := range []string{
		"strlen", "count", "sizeof", "in_array", "array_key_exists", "array_keys", "array_values",
		"array_merge", "array_map", "array_filter", "array_slice", "array_search", "array_unique",
		"array_flip", "array_reverse", "array_combine", "array_fill", "array_fill_keys",
		"array_column", "array_key_first", "array_key_last", "array_sum", "array_product",
		"array_diff", "array_intersect", "array_diff_key", "array_intersect_key", "array_chunk",
		"array_pad", "array_is_list", "range", "compact", "implode", "join", "explode",
		"str_replace", "str_contains", "str_starts_with", "str_ends_with", "str_repeat", "str_pad",
		"str_split", "strpos", "stripos", "strrpos", "substr", "substr_count", "strtolower",
		"strtoupper", "ucfirst", "lcfirst", "ucwords", "trim", "ltrim", "rtrim", "sprintf",
		"vsprintf", "number_format", "nl2br", "htmlspecialchars", "html_entity_decode",
		"strip_tags", "addslashes", "stripslashes", "strcmp", "strcasecmp", "strrev", "wordwrap",
		"mb_strlen", "mb_substr", "mb_strtolower", "mb_strtoupper", "preg_quote", "json_encode",
		"serialize", "is_null", "is_int", "is_integer", "is_float", "is_string", "is_bool",
		"is_array", "is_object", "is_numeric", "is_iterable", "is_countable", "is_scalar",
		"is_resource", "intval", "floatval", "strval", "boolval", "gettype", "get_debug_type",
		"get_class", "get_parent_class", "get_object_vars", "abs", "ceil", "floor", "round",
		"sqrt", "pow", "intdiv", "fmod", "max", "min", "md5", "sha1", "crc32", "hash",
		"base64_encode", "base64_decode", "bin2hex", "urlencode", "urldecode", "rawurlencode",
		"http_build_query", "basename", "dirname", "pathinfo", "version_compare", "array_rand",
		"array_any", "array_all", "array_find", "iterator_to_array", "spl_object_id",
		"spl_object_hash", "levenshtein", "ctype_digit", "ctype_alpha", "func_get_args",
		"func_num_args", "defined", "method_exists", "property_exists", "function_exists",
		"is_a", "is_subclass_of", "constant", "date", "strtotime", "checkdate", "time",
	} {
		pureFunctions[name] = true
	}
}

// IsPureFunction reports a builtin without side effects.
func IsPureFunction(name string) bool { return pureFunctions[strings.ToLower(name)] }

type builtinClass struct {
	name       string
	kind       ClassKind
	parent     string
	interfaces []string
	methods    []string
	dynamic    bool
	abstract   bool
	final      bool
}

var throwableMethods = []string{
	"getMessage(): string", "getCode(): mixed", "getPrevious(): ?Throwable",
	"getFile(): string", "getLine(): int", "getTrace(): array", "getTraceAsString(): string",
	"__toString(): string",
}

var exceptionCtor = "__construct(string $message = ?, int $code = ?, ?Throwable $previous = ?)"

var builtinClasses = []builtinClass{
	{name: "Traversable", kind: KindInterface},
	{name: "Iterator", kind: KindInterface, interfaces: []string{"Traversable"}, methods: []string{
		"current(): mixed", "key(): mixed", "next(): void", "rewind(): void", "valid(): bool",
	}},
	{name: "IteratorAggregate", kind: KindInterface, interfaces: []string{"Traversable"}, methods: []string{
		"getIterator(): Traversable",
	}},
	{name: "ArrayAccess", kind: KindInterface, methods: []string{
		"offsetExists(mixed $offset): bool", "offsetGet(mixed $offset): mixed",
		"offsetSet(mixed $offset, mixed $value): void", "offsetUnset(mixed $offset): void",
	}},
	{name: "Countable", kind: KindInterface, methods: []string{"count(): int"}},
	{name: "Stringable", kind: KindInterface, methods: []string{"__toString(): string"}},
	{name: "JsonSerializable", kind: KindInterface, methods: []string{"jsonSerialize(): mixed"}},
	{name: "Serializable", kind: KindInterface, methods: []string{
		"serialize(): ?string", "unserialize(string $data): void",
	}},
	{name: "UnitEnum", kind: KindInterface, methods: []string{"static cases(): array"}},
	{name: "BackedEnum", kind: KindInterface, interfaces: []string{"UnitEnum"}, methods: []string{
		"static from(int|string $value): static", "static tryFrom(int|string $value): ?static",
	}},
	{name: "Throwable", kind: KindInterface, interfaces: []string{"Stringable"}, methods: throwableMethods},
	{name: "Exception", interfaces: []string{"Throwable"}, methods: append([]string{exceptionCtor}, throwableMethods...)},
	{name: "Error", interfaces: []string{"Throwable"}, methods: append([]string{exceptionCtor}, throwableMethods...)},
	{name: "ErrorException", parent: "Exception", methods: []string{
		"__construct(string $message = ?, int $code = ?, int $severity = ?, ?string $filename = ?, ?int $line = ?, ?Throwable $previous = ?)",
		"getSeverity(): int",
	}},
	{name: "TypeError", parent: "Error"},
	{name: "ValueError", parent: "Error"},
	{name: "ArithmeticError", parent: "Error"},
	{name: "DivisionByZeroError", parent: "ArithmeticError"},
	{name: "ArgumentCountError", parent: "TypeError"},
	{name: "AssertionError", parent: "Error"},
	{name: "CompileError", parent: "Error"},
	{name: "ParseError", parent: "CompileError"},
	{name: "UnhandledMatchError", parent: "Error"},
	{name: "JsonException", parent: "Exception"},
	{name: "LogicException", parent: "Exception"},
	{name: "BadFunctionCallException", parent: "LogicException"},
	{name: "BadMethodCallException", parent: "BadFunctionCallException"},
	{name: "DomainException", parent: "LogicException"},
	{name: "InvalidArgumentException", parent: "LogicException"},
	{name: "LengthException", parent: "LogicException"},
	{name: "OutOfRangeException", parent: "LogicException"},
	{name: "RuntimeException", parent: "Exception"},
	{name: "OutOfBoundsException", parent: "RuntimeException"},
	{name: "OverflowException", parent: "RuntimeException"},
	{name: "RangeException", parent: "RuntimeException"},
	{name: "UnderflowException", parent: "RuntimeException"},
	{name: "UnexpectedValueException", parent: "RuntimeException"},
	{name: "stdClass", dynamic: true},
	{name: "Closure", final: true, methods: []string{
		"static bind(Closure $closure, ?object $newThis, object|string|null $newScope = ?): ?Closure",
		"bindTo(?object $newThis, object|string|null $newScope = ?): ?Closure",
		"call(object $newThis, mixed ...$args): mixed",
		"static fromCallable(callable $callback): Closure",
		"__invoke(mixed ...$args): mixed",
	}},
	{name: "Generator", final: true, interfaces: []string{"Iterator"}, methods: []string{
		"current(): mixed", "key(): mixed", "next(): void", "rewind(): void", "valid(): bool",
		"send(mixed $value): mixed", "throw(Throwable $exception): mixed", "getReturn(): mixed",
	}},
	{name: "ArrayIterator", interfaces: []string{"Iterator", "ArrayAccess", "Countable", "Serializable"}, methods: []string{
		"__construct(array|object $array = ?, int $flags = ?)",
		"current(): mixed", "key(): string|int|null", "next(): void", "rewind(): void", "valid(): bool",
		"offsetExists(mixed $key): bool", "offsetGet(mixed $key): mixed",
		"offsetSet(mixed $key, mixed $value): void", "offsetUnset(mixed $key): void",
		"count(): int", "getArrayCopy(): array",
	}},
	{name: "ArrayObject", interfaces: []string{"IteratorAggregate", "ArrayAccess", "Countable", "Serializable"}, methods: []string{
		"__construct(array|object $array = ?, int $flags = ?, string $iteratorClass = ?)",
		"getIterator(): Iterator", "offsetExists(mixed $key): bool", "offsetGet(mixed $key): mixed",
		"offsetSet(mixed $key, mixed $value): void", "offsetUnset(mixed $key): void",
		"count(): int", "getArrayCopy(): array", "append(mixed $value): void",
	}},
	{name: "SplObjectStorage", interfaces: []string{"Countable", "Iterator", "ArrayAccess"}, methods: []string{
		"attach(object $object, mixed $info = ?): void", "detach(object $object): void",
		"contains(object $object): bool", "count(int $mode = ?): int",
		"current(): object", "key(): int", "next(): void", "rewind(): void", "valid(): bool",
		"offsetExists(mixed $object): bool", "offsetGet(mixed $object): mixed",
		"offsetSet(mixed $object, mixed $info = ?): void", "offsetUnset(mixed $object): void",
	}},
	{name: "WeakMap", final: true, interfaces: []string{"ArrayAccess", "Countable", "IteratorAggregate"}, methods: []string{
		"offsetExists(object $object): bool", "offsetGet(object $object): mixed",
		"offsetSet(object $object, mixed $value): void", "offsetUnset(object $object): void",
		"count(): int", "getIterator(): Iterator",
	}},
	{name: "DateTimeInterface", kind: KindInterface, methods: []string{
		"format(string $format): string", "getTimestamp(): int", "getTimezone(): DateTimeZone|false",
		"diff(DateTimeInterface $targetObject, bool $absolute = ?): DateInterval",
	}},
	{name: "DateTime", interfaces: []string{"DateTimeInterface"}, methods: []string{
		"__construct(string $datetime = ?, ?DateTimeZone $timezone = ?)",
		"format(string $format): string", "getTimestamp(): int", "getTimezone(): DateTimeZone|false",
		"diff(DateTimeInterface $targetObject, bool $absolute = ?): DateInterval",
		"modify(string $modifier): DateTime|false", "setDate(int $year, int $month, int $day): DateTime",
		"setTime(int $hour, int $minute, int $second = ?, int $microsecond = ?): DateTime",
		"setTimestamp(int $timestamp): DateTime", "setTimezone(DateTimeZone $timezone): DateTime",
		"add(DateInterval $interval): DateTime", "sub(DateInterval $interval): DateTime",
		"static createFromFormat(string $format, string $datetime, ?DateTimeZone $timezone = ?): DateTime|false",
	}},
	{name: "DateTimeImmutable", interfaces: []string{"DateTimeInterface"}, methods: []string{
		"__construct(string $datetime = ?, ?DateTimeZone $timezone = ?)",
		"format(string $format): string", "getTimestamp(): int", "getTimezone(): DateTimeZone|false",
		"diff(DateTimeInterface $targetObject, bool $absolute = ?): DateInterval",
		"modify(string $modifier): DateTimeImmutable|false",
		"setDate(int $year, int $month, int $day): DateTimeImmutable",
		"setTime(int $hour, int $minute, int $second = ?, int $microsecond = ?): DateTimeImmutable",
		"setTimestamp(int $timestamp): DateTimeImmutable",
		"setTimezone(DateTimeZone $timezone): DateTimeImmutable",
		"add(DateInterval $interval): DateTimeImmutable", "sub(DateInterval $interval): DateTimeImmutable",
		"static createFromFormat(string $format, string $datetime, ?DateTimeZone $timezone = ?): DateTimeImmutable|false",
		"static createFromMutable(DateTime $object): DateTimeImmutable",
	}},
	{name: "DateTimeZone", methods: []string{"__construct(string $timezone)", "getName(): string"}},
	{name: "DateInterval", dynamic: true, methods: []string{
		"__construct(string $duration)", "format(string $format): string",
	}},
	{name: "Attribute", final: true, methods: []string{"__construct(int $flags = ?)"}},
	{name: "SensitiveParameter", final: true},
	{name: "Override", final: true},
	{name: "ReflectionClass", dynamic: true, methods: []string{
		"__construct(object|string $objectOrClass)", "getName(): string", "getShortName(): string",
		"newInstance(mixed ...$args): object", "newInstanceArgs(array $args = ?): ?object",
		"getMethods(?int $filter = ?): array", "getProperties(?int $filter = ?): array",
		"hasMethod(string $name): bool", "hasProperty(string $name): bool",
		"isInterface(): bool", "isAbstract(): bool", "isFinal(): bool",
		"getAttributes(?string $name = ?, int $flags = ?): array",
	}},
	{name: "SplStack", interfaces: []string{"Countable", "Iterator", "ArrayAccess"}, methods: []string{
		"push(mixed $value): void", "pop(): mixed", "top(): mixed", "isEmpty(): bool", "count(): int",
		"current(): mixed", "key(): int", "next(): void", "rewind(): void", "valid(): bool",
		"offsetExists(mixed $index): bool", "offsetGet(mixed $index): mixed",
		"offsetSet(mixed $index, mixed $value): void", "offsetUnset(mixed $index): void",
	}},
	{name: "SplQueue", parent: "SplStack", methods: []string{
		"enqueue(mixed $value): void", "dequeue(): mixed",
	}},
}

var builtinConstants = map[string]*types.Type{
	"PHP_EOL":                types.String(),
	"PHP_INT_MAX":            types.Int(),
	"PHP_INT_MIN":            types.Int(),
	"PHP_INT_SIZE":           types.Int(),
	"PHP_FLOAT_EPSILON":      types.Float(),
	"PHP_FLOAT_MAX":          types.Float(),
	"PHP_FLOAT_MIN":          types.Float(),
	"PHP_VERSION":            types.String(),
	"PHP_MAJOR_VERSION":      types.Int(),
	"PHP_MINOR_VERSION":      types.Int(),
	"PHP_VERSION_ID":         types.Int(),
	"PHP_OS":                 types.String(),
	"PHP_OS_FAMILY":          types.String(),
	"PHP_SAPI":               types.String(),
	"DIRECTORY_SEPARATOR":    types.String(),
	"PATH_SEPARATOR":         types.String(),
	"E_ALL":                  types.Int(),
	"E_ERROR":                types.Int(),
	"E_WARNING":              types.Int(),
	"E_NOTICE":               types.Int(),
	"E_STRICT":               types.Int(),
	"E_DEPRECATED":           types.Int(),
	"E_USER_ERROR":           types.Int(),
	"E_USER_WARNING":         types.Int(),
	"E_USER_NOTICE":          types.Int(),
	"E_USER_DEPRECATED":      types.Int(),
	"JSON_THROW_ON_ERROR":    types.Int(),
	"JSON_PRETTY_PRINT":      types.Int(),
	"JSON_UNESCAPED_SLASHES": types.Int(),
	"JSON_UNESCAPED_UNICODE": types.Int(),
	"JSON_ERROR_NONE":        types.Int(),
	"SORT_REGULAR":           types.Int(),
	"SORT_STRING":            types.Int(),
	"SORT_NUMERIC":           types.Int(),
	"SORT_FLAG_CASE":         types.Int(),
	"COUNT_RECURSIVE":        types.Int(),
	"ARRAY_FILTER_USE_KEY":   types.Int(),
	"ARRAY_FILTER_USE_BOTH":  types.Int(),
	"ENT_QUOTES":             types.Int(),
	"ENT_HTML5":              types.Int(),
	"ENT_COMPAT":             types.Int(),
	"PREG_SPLIT_NO_EMPTY":    types.Int(),
	"PREG_PATTERN_ORDER":     types.Int(),
	"PREG_SET_ORDER":         types.Int(),
	"PREG_OFFSET_CAPTURE":    types.Int(),
	"STR_PAD_LEFT":           types.Int(),
	"STR_PAD_RIGHT":          types.Int(),
	"STR_PAD_BOTH":           types.Int(),
	"LOCK_EX":                types.Int(),
	"LOCK_SH":                types.Int(),
	"LOCK_UN":                types.Int(),
	"FILE_APPEND":            types.Int(),
	"FILE_IGNORE_NEW_LINES":  types.Int(),
	"FILE_SKIP_EMPTY_LINES":  types.Int(),
	"FILTER_VALIDATE_INT":    types.Int(),
	"FILTER_VALIDATE_EMAIL":  types.Int(),
	"FILTER_VALIDATE_BOOL":   types.Int(),
	"FILTER_DEFAULT":         types.Int(),
	"PASSWORD_DEFAULT":       types.String(),
	"PASSWORD_BCRYPT":        types.String(),
	"M_PI":                   types.Float(),
	"M_E":                    types.Float(),
	"NAN":                    types.Float(),
	"INF":                    types.Float(),
	"STDIN":                  types.Resource(),
	"STDOUT":                 types.Resource(),
	"STDERR":                 types.Resource(),
	"true":                   types.BoolLiteral(true),
	"false":                  types.BoolLiteral(false),
	"null":                   types.Null(),
}

func registerBuiltins(t *Table) {
	for _, sig := range builtinFunctionSigs {
		name, s := mustSignature(sig)
		_ = t.AddFunction(&FunctionInfo{Name: name, Signature: s, Builtin: true})
	}
	for _, name := range builtinFunctionNames {
		if t.HasFunction(name) {
			continue
		}
		_ = t.AddFunction(&FunctionInfo{Name: name, Signature: Signature{Unknown: true}, Builtin: true})
	}
	for _, bc := range builtinClasses {
		c := NewClassInfo(bc.name, bc.kind)
		c.Parent = bc.parent
		c.Interfaces = bc.interfaces
		c.Builtin = true
		c.Dynamic = bc.dynamic
		c.Abstract = bc.abstract || bc.kind == KindInterface
		c.Final = bc.final
		bind := selfBinder(c.Name, c.Parent)
		for _, decl := range bc.methods {
			static := strings.HasPrefix(decl, "static ")
			name, s := mustSignature(strings.TrimPrefix(decl, "static "))
			s.ReturnType = bind(s.ReturnType)
			c.AddMethod(&MethodInfo{
				Name:      name,
				Signature: s,
				Static:    static,
				Abstract:  bc.kind == KindInterface,
			})
		}
		_ = t.AddClass(c)
	}
	for name, typ := range builtinConstants {
		_ = t.AddConstant(&ConstantInfo{Name: name, Type: typ, Builtin: true})
	}
}

// mustSignature parses `name(type $a, type ...$b = ?): ret`. The tables above are
// static, so malformed entries panic at init.
func mustSignature(decl string) (string, Signature) {
	open := strings.Index(decl, "(")
	closeIdx := strings.LastIndex(decl, ")")
	if open < 0 || closeIdx < open {
		panic(fmt.Sprintf("builtin signature %q", decl))
	}
	name := strings.TrimSpace(decl[:open])
	var s Signature
	if ret := strings.TrimSpace(decl[closeIdx+1:]); strings.HasPrefix(ret, ":") {
		s.ReturnType = types.MustParse(strings.TrimSpace(ret[1:]))
	}
	for _, raw := range splitParams(decl[open+1 : closeIdx]) {
		s.Params = append(s.Params, mustParam(raw, decl))
	}
	return name, s
}

func splitParams(list string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '(', '<', '{':
			depth++
		case ')', '>', '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, list[start:i])
				start = i + 1
			}
		}
	}
	if strings.TrimSpace(list[start:]) != "" {
		out = append(out, list[start:])
	}
	return out
}

func mustParam(raw, decl string) *ParameterInfo {
	p := &ParameterInfo{}
	raw = strings.TrimSpace(raw)
	if before, _, ok := strings.Cut(raw, "="); ok {
		p.HasDefault = true
		raw = strings.TrimSpace(before)
	}
	dollar := strings.LastIndex(raw, "$")
	if dollar < 0 {
		panic(fmt.Sprintf("builtin signature %q: parameter %q", decl, raw))
	}
	p.Name = raw[dollar+1:]
	head := strings.TrimSpace(raw[:dollar])
	if strings.HasSuffix(head, "...") {
		p.Variadic = true
		head = strings.TrimSpace(strings.TrimSuffix(head, "..."))
	}
	if strings.HasSuffix(head, "&") {
		p.ByRef = true
		head = strings.TrimSpace(strings.TrimSuffix(head, "&"))
	}
	if head != "" {
		p.Type = types.MustParse(head)
	}
	return p
}

// BuiltinClassNames lists the registered builtin class-likes.
func BuiltinClassNames() []string {
	out := make([]string, 0, len(builtinClasses))
	for _, bc := range builtinClasses {
		out = append(out, bc.name)
	}
	return out
}
