package help

const ColdstartYAML = `# vscrape Quick Start

modes:
  collect: "Search, skip ignored and already downloaded ids, download into <output>/<query>/"
  manifest: "Search the same way but write a label/query manifest instead of downloading"
  rank: "Score downloaded videos against their query with an image/text embedding model"

commands:
  download: |
    vscrape collect --query "ocean waves" --count 10

  download_filtered: |
    vscrape collect --query "mountain landscape" --count 5 --max-duration 30 --exclude-title logo --exclude-title watermark

  manifest: |
    vscrape manifest --query "ocean waves" --label "Nature Videos" --count 5

  manifest_sampled: |
    vscrape manifest --query "ocean waves" --label "Nature Videos" --count 5 --sample-from 50

  ignore_status: |
    vscrape ignore status --query "ocean waves"

  ignore_import: |
    vscrape ignore import downloads/ocean_waves/query_metadata.json

  ignore_add: |
    vscrape ignore add --query "ocean waves" 123456789 987654321

  rank: |
    vscrape rank --source-dir downloads --top-k 5 --filtered-dir filtered

  list_runs: |
    vscrape runs list

  run_details: |
    vscrape runs show 5

key_files:
  - "downloads/<clean_query>/query_metadata.json (id to file mappings)"
  - "ignore_list/<clean_query>_ignore_list.json (per-query ignore list)"
  - "ignore_list/adobe_stock_ignore_list.json (global ignore list)"
  - "filtered/filtering_results.json (rank output)"
  - "vscrape.db (run history, ignore lists with --ignore-backend db)"

search_budget:
  - "download mode: 20 attempts, manifest mode: 5 attempts"
  - "large ignore lists raise attempts and breadth up to 2.4x"
  - "empty attempt doubles breadth, unproductive attempt grows it by 1.5x"
  - "falling short is a warning, not an error"

configuration:
  file: "vscrape.yaml (--config)"
  env:
    VSCRAPE_EMBED_API_KEY: "API key for the embedding endpoint"
  example: |
    output_dir: downloads
    ignore_dir: ignore_list
    delay: 1s
    search:
      cache_dir: .vscrape-cache
      cache_ttl: 30m
    embed:
      endpoint: http://127.0.0.1:8003/v1/
      model: clip-vit-b-32
      dimension: 512

error_behavior:
  - "Invalid flags or --sample-from smaller than --count: exit code 2, nothing searched"
  - "Search and download failures: logged and counted, run continues"
  - "Videos that cannot be decoded: score 0, kept in the ranking"
`
